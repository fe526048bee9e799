package program

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/gagliardetto/solana-go"
)

//go:embed idl/tip_jar.json
var DefaultIDL []byte

// IDL is the subset of an Anchor IDL document the client checks itself
// against.
type IDL struct {
	Address  string `json:"address"`
	Metadata struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"metadata"`
	Instructions []IDLInstruction `json:"instructions"`
	Errors       []IDLError       `json:"errors"`
}

type IDLInstruction struct {
	Name          string       `json:"name"`
	Discriminator []int        `json:"discriminator"`
	Accounts      []IDLAccount `json:"accounts"`
	Args          []IDLArg     `json:"args"`
}

type IDLAccount struct {
	Name     string `json:"name"`
	Writable bool   `json:"writable"`
	Signer   bool   `json:"signer"`
}

type IDLArg struct {
	Name string          `json:"name"`
	Type json.RawMessage `json:"type"`
}

type IDLError struct {
	Code uint32 `json:"code"`
	Name string `json:"name"`
	Msg  string `json:"msg"`
}

func LoadIDL(r io.Reader) (*IDL, error) {
	var idl IDL
	if err := json.NewDecoder(r).Decode(&idl); err != nil {
		return nil, fmt.Errorf("fail to decode idl, err: %w", err)
	}
	return &idl, nil
}

// ProgramID returns the program address declared by the IDL.
func (i *IDL) ProgramID() (solana.PublicKey, error) {
	if i.Address == "" {
		return solana.PublicKey{}, fmt.Errorf("idl has no program address")
	}
	return solana.PublicKeyFromBase58(i.Address)
}

type expectedInstruction struct {
	disc     Discriminator
	accounts []string
	args     int
}

var expectedInstructions = map[string]expectedInstruction{
	InstructionInitialize: {disc: InitializeDiscriminator, accounts: []string{"vault", "authority", "system_program"}},
	InstructionTip:        {disc: TipDiscriminator, accounts: []string{"vault", "authority", "tipper", "system_program"}, args: 1},
	InstructionWithdraw:   {disc: WithdrawDiscriminator, accounts: []string{"vault", "authority"}, args: 1},
}

// Validate checks that the document describes the instructions the compiled
// builders produce: same names, same account order, same discriminators.
func (i *IDL) Validate() error {
	found := make(map[string]IDLInstruction, len(i.Instructions))
	for _, ix := range i.Instructions {
		found[snakeCase(ix.Name)] = ix
	}
	for name, want := range expectedInstructions {
		ix, ok := found[name]
		if !ok {
			return fmt.Errorf("idl is missing instruction %q", name)
		}
		if len(ix.Accounts) != len(want.accounts) {
			return fmt.Errorf("instruction %q: expected %d accounts, got %d", name, len(want.accounts), len(ix.Accounts))
		}
		for idx, acc := range ix.Accounts {
			if snakeCase(acc.Name) != want.accounts[idx] {
				return fmt.Errorf("instruction %q: account %d is %q, expected %q", name, idx, acc.Name, want.accounts[idx])
			}
		}
		if len(ix.Args) != want.args {
			return fmt.Errorf("instruction %q: expected %d args, got %d", name, want.args, len(ix.Args))
		}
		if len(ix.Discriminator) == 0 {
			continue
		}
		if len(ix.Discriminator) != len(want.disc) {
			return fmt.Errorf("instruction %q: malformed discriminator", name)
		}
		for idx, b := range ix.Discriminator {
			if b != int(want.disc[idx]) {
				return fmt.Errorf("instruction %q: discriminator mismatch", name)
			}
		}
	}
	return nil
}

// snakeCase normalises legacy camelCase IDL names ("systemProgram").
func snakeCase(s string) string {
	var b strings.Builder
	for idx, r := range s {
		if r >= 'A' && r <= 'Z' {
			if idx > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
