package game

// Known collection token variants. Each class owns a block of a thousand ids.
const (
	StandardKing      TokenVariant = 1000
	MaharajaKing      TokenVariant = 1002
	DevarajaKing      TokenVariant = 1004
	MansaKing         TokenVariant = 1006
	NegusKing         TokenVariant = 1008
	AlexanderTheGreat TokenVariant = 1100
	StandardQueen     TokenVariant = 2000
	PalatiniQueen     TokenVariant = 2002
	StandardBishop    TokenVariant = 3000
	VarangianBishop   TokenVariant = 3002
	SamuraiBishop     TokenVariant = 3004
	StandardKnight    TokenVariant = 4000
	SagittariiKnight  TokenVariant = 4002
	StradiotiKnight   TokenVariant = 4004
	StandardRook      TokenVariant = 5000
	PaviseRook        TokenVariant = 5002
	JanissariesRook   TokenVariant = 5004
	StandardPawn      TokenVariant = 6000
	HoplitesPawn      TokenVariant = 6002
	LimitaneiPawn     TokenVariant = 6004
	ConquistadorsPawn TokenVariant = 6006
	MamluksPawn       TokenVariant = 6008
	StandardTrebuchet TokenVariant = 7000
)

// TokenSet picks one token variant per class.
type TokenSet map[PieceClass]TokenVariant

func (s TokenSet) Token(c PieceClass) TokenVariant { return s[c] }

var (
	StandardTokens = TokenSet{
		King:   StandardKing,
		Queen:  StandardQueen,
		Bishop: StandardBishop,
		Knight: StandardKnight,
		Rook:   StandardRook,
		Pawn:   StandardPawn,
	}
	ExoticTokens = TokenSet{
		King:   AlexanderTheGreat,
		Queen:  PalatiniQueen,
		Bishop: VarangianBishop,
		Knight: SagittariiKnight,
		Rook:   PaviseRook,
		Pawn:   ConquistadorsPawn,
	}
)

// StandardAllocation is one king, queen, bishop, knight and rook plus five
// pawns, all minted from set.
func StandardAllocation(set TokenSet) []AllocationEntry {
	return []AllocationEntry{
		{Class: King, Token: set.Token(King), Count: 1},
		{Class: Queen, Token: set.Token(Queen), Count: 1},
		{Class: Bishop, Token: set.Token(Bishop), Count: 1},
		{Class: Knight, Token: set.Token(Knight), Count: 1},
		{Class: Rook, Token: set.Token(Rook), Count: 1},
		{Class: Pawn, Token: set.Token(Pawn), Count: 5},
	}
}
