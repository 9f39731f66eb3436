package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"

	"blitz-zk/internal/app"
	"blitz-zk/internal/codec"
	"blitz-zk/internal/game"
	"blitz-zk/internal/server"
	"blitz-zk/internal/zk"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	switch os.Args[1] {
	case "init":
		cmdInit()
	case "commit":
		cmdCommit()
	case "setup":
		cmdSetup()
	case "prove-move":
		cmdProveMove()
	case "verify":
		cmdVerify()
	case "sign":
		cmdSign()
	case "serve":
		cmdServe()
	default:
		usage()
	}
}

func usage() {
	fmt.Println(`Blitz-ZK CLI

Commands:
  init       --role white --tokens standard --out secret.json
  commit     --secret secret.json --out placement.json
  setup      --keys ./keys
  prove-move --secret secret.json --keys ./keys --from 0xADDR --piece N --x X --y Y --out move.json
  verify     --vk ./keys/piece-motion.vk --circuit piece-motion --proof move.json
  sign       --key HEX --method POST --path /v1/matches/0xID/move --body move.json
  serve      --addr :8080 --keys ./keys [--vision-vk FILE] [--reveal-vk FILE]

Send the signed body byte for byte (curl --data-binary @move.json).
Every command accepts --log-level and --pretty.`)
}

// logFlags registers the logging flags on fs; call the result after Parse.
func logFlags(fs *flag.FlagSet) func() zerolog.Logger {
	level := fs.String("log-level", "info", "trace|debug|info|warn|error")
	pretty := fs.Bool("pretty", false, "human readable console logs")
	return func() zerolog.Logger {
		lvl, err := zerolog.ParseLevel(*level)
		if err != nil {
			lvl = zerolog.InfoLevel
		}
		var l zerolog.Logger
		if *pretty {
			l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
		} else {
			l = zerolog.New(os.Stderr)
		}
		return l.Level(lvl).With().Timestamp().Logger()
	}
}

func cmdInit() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	roleName := fs.String("role", "white", "white|black")
	tokens := fs.String("tokens", "standard", "standard|exotic")
	out := fs.String("out", "secret.json", "output secret file")
	logger := logFlags(fs)
	_ = fs.Parse(os.Args[2:])
	log := logger()

	role, err := game.ParseRole(*roleName)
	if err != nil {
		log.Fatal().Err(err).Msg("init")
	}
	set := game.StandardTokens
	switch strings.ToLower(*tokens) {
	case "standard":
	case "exotic":
		set = game.ExoticTokens
	default:
		log.Fatal().Str("tokens", *tokens).Msg("unknown token set")
	}
	sec := app.InitLayout(role, set)
	if err := saveJSON(*out, &sec); err != nil {
		log.Fatal().Err(err).Msg("write secret")
	}
	log.Info().Str("file", *out).Str("role", role.String()).Int("pieces", len(sec.Layout.Pieces)).Msg("wrote layout")
}

func cmdCommit() {
	fs := flag.NewFlagSet("commit", flag.ExitOnError)
	secretPath := fs.String("secret", "secret.json", "player secret state")
	out := fs.String("out", "placement.json", "public placement payload")
	logger := logFlags(fs)
	_ = fs.Parse(os.Args[2:])
	log := logger()

	var sec codec.Secret
	if err := loadJSON(*secretPath, &sec); err != nil {
		log.Fatal().Err(err).Msg("read secret")
	}
	res, err := app.Commit(sec)
	if err != nil {
		log.Fatal().Err(err).Msg("commit")
	}
	if err := saveJSON(*out, res); err != nil {
		log.Fatal().Err(err).Msg("write placement")
	}
	fmt.Println("ROSTER ROOT:", res.RosterRoot.Dec())
	log.Info().Str("file", *out).Int("pieces", len(res.Pieces)).Msg("wrote placement")
}

func cmdSetup() {
	fs := flag.NewFlagSet("setup", flag.ExitOnError)
	keysDir := fs.String("keys", "./keys", "keys directory")
	logger := logFlags(fs)
	_ = fs.Parse(os.Args[2:])
	log := logger()

	start := time.Now()
	if err := zk.EnsureKeys(*keysDir, zk.PieceMotion); err != nil {
		log.Fatal().Err(err).Msg("setup")
	}
	log.Info().
		Str("vk", zk.VKPath(*keysDir, zk.PieceMotion)).
		Str("pk", zk.PKPath(*keysDir, zk.PieceMotion)).
		Dur("took", time.Since(start)).
		Msg("piece-motion keys ready")
}

func cmdProveMove() {
	fs := flag.NewFlagSet("prove-move", flag.ExitOnError)
	secretPath := fs.String("secret", "secret.json", "player secret state")
	keysDir := fs.String("keys", "./keys", "keys directory")
	from := fs.String("from", "", "player address")
	piece := fs.Uint("piece", 0, "piece id")
	x := fs.Uint("x", 0, "target x [0..7]")
	y := fs.Uint("y", 0, "target y [0..7]")
	out := fs.String("out", "move.json", "proof output")
	logger := logFlags(fs)
	_ = fs.Parse(os.Args[2:])
	log := logger()

	if !common.IsHexAddress(*from) {
		log.Fatal().Str("from", *from).Msg("--from must be a hex address")
	}
	if *x >= game.BoardSize || *y >= game.BoardSize {
		log.Fatal().Uint("x", *x).Uint("y", *y).Msg("target off the board")
	}
	var sec codec.Secret
	if err := loadJSON(*secretPath, &sec); err != nil {
		log.Fatal().Err(err).Msg("read secret")
	}
	to := game.Coord{X: uint8(*x), Y: uint8(*y)}
	payload, err := app.ProveMove(&sec, *keysDir, common.HexToAddress(*from), game.PieceID(*piece), to)
	if err != nil {
		log.Fatal().Err(err).Msg("prove move")
	}
	if err := saveJSON(*out, payload); err != nil {
		log.Fatal().Err(err).Msg("write proof")
	}
	// the secret now tracks the piece on its new square
	if err := saveJSON(*secretPath, &sec); err != nil {
		log.Fatal().Err(err).Msg("update secret")
	}
	log.Info().Str("file", *out).Uint("piece", *piece).Stringer("to", to).Msg("wrote move proof")
}

func cmdVerify() {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	vkPath := fs.String("vk", "./keys/piece-motion.vk", "verifying key file")
	circuit := fs.String("circuit", zk.PieceMotion.String(), "piece-motion|player-vision|reveal-board-position")
	proofPath := fs.String("proof", "move.json", "proof payload json")
	logger := logFlags(fs)
	_ = fs.Parse(os.Args[2:])
	log := logger()

	kind, err := zk.ParseCircuitKind(*circuit)
	if err != nil {
		log.Fatal().Err(err).Msg("verify")
	}
	var payload codec.ProofPayload
	if err := loadJSON(*proofPath, &payload); err != nil {
		log.Fatal().Err(err).Msg("read proof")
	}
	ok, err := app.Verify(*vkPath, kind, payload)
	if err != nil {
		log.Fatal().Err(err).Msg("verify")
	}
	if !ok {
		log.Fatal().Str("circuit", kind.String()).Msg("invalid proof")
	}
	fmt.Println("VALID")
}

func cmdSign() {
	fs := flag.NewFlagSet("sign", flag.ExitOnError)
	keyHex := fs.String("key", "", "secp256k1 private key (hex)")
	method := fs.String("method", http.MethodPost, "request method")
	path := fs.String("path", "", "request path")
	bodyPath := fs.String("body", "", "request body file")
	logger := logFlags(fs)
	_ = fs.Parse(os.Args[2:])
	log := logger()

	key, err := crypto.HexToECDSA(strings.TrimPrefix(*keyHex, "0x"))
	if err != nil {
		log.Fatal().Err(err).Msg("--key")
	}
	if *path == "" || *bodyPath == "" {
		log.Fatal().Msg("--path and --body are required")
	}
	body, err := os.ReadFile(*bodyPath)
	if err != nil {
		log.Fatal().Err(err).Msg("read body")
	}
	sig, err := server.SignRequest(key, strings.ToUpper(*method), *path, body)
	if err != nil {
		log.Fatal().Err(err).Msg("sign")
	}
	fmt.Printf("%s: %s\n", server.SignatureHeader, sig)
	log.Info().Str("signer", crypto.PubkeyToAddress(key.PublicKey).Hex()).Str("path", *path).Msg("signed request")
}

func cmdServe() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", ":8080", "listen address")
	keys := fs.String("keys", "./keys", "piece-motion keys directory (generated if missing)")
	visionVK := fs.String("vision-vk", "", "player-vision verifying key file")
	revealVK := fs.String("reveal-vk", "", "reveal-board-position verifying key file")
	logger := logFlags(fs)
	_ = fs.Parse(os.Args[2:])
	log := logger()

	lobby, err := app.NewLobby(app.Options{
		KeysDir:      *keys,
		VisionVKPath: *visionVK,
		RevealVKPath: *revealVK,
		Logger:       log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("lobby")
	}

	srv := server.New(lobby, log)
	mux := http.NewServeMux()
	srv.Routes(mux)
	log.Info().Str("addr", *addr).Msg("serving")
	if err := http.ListenAndServe(*addr, server.WithCORS(server.WithLogging(log, mux))); err != nil {
		log.Fatal().Err(err).Msg("serve")
	}
}

func saveJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func loadJSON(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	return dec.Decode(v)
}
