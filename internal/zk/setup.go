package zk

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"blitz-zk/internal/commitment"
	"blitz-zk/internal/game"
)

var ErrNoCircuit = errors.New("circuit is not built into this binary")

// circuitFor returns the in-repo circuit for kind. Vision and reveal circuits
// are compiled elsewhere; only their verifying keys are loaded here.
func circuitFor(kind CircuitKind) (frontend.Circuit, error) {
	switch kind {
	case PieceMotion:
		return &PieceMotionCircuit{}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNoCircuit, kind)
}

func VKPath(dir string, kind CircuitKind) string { return filepath.Join(dir, kind.String()+".vk") }
func PKPath(dir string, kind CircuitKind) string { return filepath.Join(dir, kind.String()+".pk") }

func compile(kind CircuitKind) (constraint.ConstraintSystem, error) {
	circuit, err := circuitFor(kind)
	if err != nil {
		return nil, err
	}
	cs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, circuit)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", kind, err)
	}
	return cs, nil
}

// EnsureKeys makes sure proving/verifying keys for kind exist in dir.
// Keys that exist and parse are reused; otherwise a single-party setup runs.
// Not for production use.
func EnsureKeys(dir string, kind CircuitKind) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	vkPath, pkPath := VKPath(dir, kind), PKPath(dir, kind)

	if vk, pk, err := readKeys(vkPath, pkPath); err == nil && vk != nil && pk != nil {
		return nil
	}

	cs, err := compile(kind)
	if err != nil {
		return err
	}
	pk, vk, err := groth16.Setup(cs)
	if err != nil {
		return fmt.Errorf("groth16 setup %s: %w", kind, err)
	}

	if err := writeVK(vkPath, vk); err != nil {
		return err
	}
	return writePK(pkPath, pk)
}

// MotionWitness is the prover's private view of one move.
type MotionWitness struct {
	PieceID game.PieceID
	Class   game.PieceClass
	From    game.Coord
	To      game.Coord
}

// Signals derives the public signals the proof will be checked against.
func (w MotionWitness) Signals() MotionSignals {
	return MotionSignals{
		PrevCommitment: commitment.Commit(w.PieceID, w.Class, w.From),
		PieceID:        w.PieceID,
		NewCommitment:  commitment.Commit(w.PieceID, w.Class, w.To),
	}
}

func (w MotionWitness) assignment() *PieceMotionCircuit {
	pub := w.Signals()
	return &PieceMotionCircuit{
		PrevCommitment: pub.PrevCommitment,
		PieceID:        uint64(w.PieceID),
		NewCommitment:  pub.NewCommitment,
		PieceClass:     uint64(w.Class),
		From:           [2]frontend.Variable{uint64(w.From.X), uint64(w.From.Y)},
		To:             [2]frontend.Variable{uint64(w.To.X), uint64(w.To.Y)},
	}
}

// ProveMotion proves one move with the keys in keysDir.
func ProveMotion(keysDir string, w MotionWitness) ([]byte, MotionSignals, error) {
	cs, err := compile(PieceMotion)
	if err != nil {
		return nil, MotionSignals{}, err
	}
	pk, err := readPK(PKPath(keysDir, PieceMotion))
	if err != nil {
		return nil, MotionSignals{}, fmt.Errorf("read proving key: %w", err)
	}
	return proveMotion(cs, pk, w)
}

func proveMotion(cs constraint.ConstraintSystem, pk groth16.ProvingKey, w MotionWitness) ([]byte, MotionSignals, error) {
	fullWit, err := frontend.NewWitness(w.assignment(), ecc.BN254.ScalarField())
	if err != nil {
		return nil, MotionSignals{}, err
	}
	proof, err := groth16.Prove(cs, pk, fullWit)
	if err != nil {
		return nil, MotionSignals{}, fmt.Errorf("prove piece-motion: %w", err)
	}

	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, MotionSignals{}, err
	}
	return buf.Bytes(), w.Signals(), nil
}

// --- key IO helpers using io.WriterTo / io.ReaderFrom ---

func writeVK(path string, vk groth16.VerifyingKey) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = vk.WriteTo(f)
	return err
}

func writePK(path string, pk groth16.ProvingKey) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = pk.WriteTo(f)
	return err
}

func readVK(path string) (groth16.VerifyingKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	vk := groth16.NewVerifyingKey(ecc.BN254)
	_, err = vk.ReadFrom(f)
	return vk, err
}

func readPK(path string) (groth16.ProvingKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	pk := groth16.NewProvingKey(ecc.BN254)
	_, err = pk.ReadFrom(f)
	return pk, err
}

func readKeys(vkPath, pkPath string) (groth16.VerifyingKey, groth16.ProvingKey, error) {
	vk, err := readVK(vkPath)
	if err != nil {
		return nil, nil, err
	}
	pk, err := readPK(pkPath)
	if err != nil {
		return nil, nil, err
	}
	return vk, pk, nil
}
