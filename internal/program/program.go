// Package program holds the compiled client-side schema of the tip_jar
// program: instruction builders, the Vault account layout, the program's
// error table and its IDL document.
package program

import (
	"crypto/sha256"
)

// Discriminator is the 8-byte prefix Anchor puts in front of instruction
// data and account data.
type Discriminator [8]byte

func discriminator(namespace, name string) Discriminator {
	hash := sha256.Sum256([]byte(namespace + ":" + name))
	var disc Discriminator
	copy(disc[:], hash[:8])
	return disc
}

// InstructionDiscriminator returns sha256("global:<name>")[:8].
func InstructionDiscriminator(name string) Discriminator {
	return discriminator("global", name)
}

// AccountDiscriminator returns sha256("account:<name>")[:8].
func AccountDiscriminator(name string) Discriminator {
	return discriminator("account", name)
}

const (
	InstructionInitialize = "initialize"
	InstructionTip        = "tip"
	InstructionWithdraw   = "withdraw"
)

var (
	InitializeDiscriminator = InstructionDiscriminator(InstructionInitialize)
	TipDiscriminator        = InstructionDiscriminator(InstructionTip)
	WithdrawDiscriminator   = InstructionDiscriminator(InstructionWithdraw)
	VaultDiscriminator      = AccountDiscriminator("Vault")
)
