package zk

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/witness"
)

// Verifier checks a proof against public signals for one circuit kind.
// A rejected proof is (false, nil); an error means the check could not run.
type Verifier interface {
	Verify(kind CircuitKind, proof []byte, signals []*big.Int) (bool, error)
}

// VerifierFunc adapts an ordinary function to Verifier.
type VerifierFunc func(kind CircuitKind, proof []byte, signals []*big.Int) (bool, error)

func (f VerifierFunc) Verify(kind CircuitKind, proof []byte, signals []*big.Int) (bool, error) {
	return f(kind, proof, signals)
}

// AcceptAll accepts every proof. Development and tests only.
func AcceptAll() Verifier {
	return VerifierFunc(func(CircuitKind, []byte, []*big.Int) (bool, error) { return true, nil })
}

// RejectAll rejects every proof.
func RejectAll() Verifier {
	return VerifierFunc(func(CircuitKind, []byte, []*big.Int) (bool, error) { return false, nil })
}

var ErrKindMismatch = errors.New("verifier bound to a different circuit")

// Groth16Verifier verifies BN254 groth16 proofs for a single circuit.
type Groth16Verifier struct {
	kind CircuitKind
	vk   groth16.VerifyingKey
}

func NewGroth16Verifier(kind CircuitKind, vk groth16.VerifyingKey) *Groth16Verifier {
	return &Groth16Verifier{kind: kind, vk: vk}
}

// ReadGroth16Verifier decodes a serialized verifying key.
func ReadGroth16Verifier(kind CircuitKind, r io.Reader) (*Groth16Verifier, error) {
	vk := groth16.NewVerifyingKey(ecc.BN254)
	if _, err := vk.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("read %s verifying key: %w", kind, err)
	}
	return NewGroth16Verifier(kind, vk), nil
}

func LoadGroth16Verifier(kind CircuitKind, path string) (*Groth16Verifier, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadGroth16Verifier(kind, f)
}

func (v *Groth16Verifier) Kind() CircuitKind { return v.kind }

func (v *Groth16Verifier) Verify(kind CircuitKind, proofBin []byte, signals []*big.Int) (bool, error) {
	if kind != v.kind {
		return false, fmt.Errorf("%w: have %s, asked %s", ErrKindMismatch, v.kind, kind)
	}
	if n := v.vk.NbPublicWitness(); n != len(signals) {
		return false, fmt.Errorf("%s expects %d public signals, got %d", kind, n, len(signals))
	}

	pr := groth16.NewProof(ecc.BN254)
	if _, err := pr.ReadFrom(bytes.NewReader(proofBin)); err != nil {
		return false, fmt.Errorf("decode %s proof: %w", kind, err)
	}
	pubWit, err := publicWitness(signals)
	if err != nil {
		return false, err
	}

	// Verify returns only error; nil => valid
	if err := groth16.Verify(pr, v.vk, pubWit); err != nil {
		return false, nil
	}
	return true, nil
}

// publicWitness builds a public-only BN254 witness from raw signal words.
func publicWitness(signals []*big.Int) (witness.Witness, error) {
	w, err := witness.New(ecc.BN254.ScalarField())
	if err != nil {
		return nil, err
	}
	values := make(chan any, len(signals))
	for i, s := range signals {
		if s == nil {
			return nil, fmt.Errorf("public signal %d is nil", i)
		}
		values <- s
	}
	close(values)
	if err := w.Fill(len(signals), 0, values); err != nil {
		return nil, fmt.Errorf("fill public witness: %w", err)
	}
	return w, nil
}
