// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

package credential

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"filippo.io/age"

	"github.com/petrel-chat/petrel/lib/secret"
)

// ageHeader is the fixed prefix of every age ciphertext. Its presence
// distinguishes a sealed token file from a plaintext one.
const ageHeader = "age-encryption.org/v1"

// scryptWorkFactor is the log2 work factor for passphrase key
// derivation. 18 is the age default; tests lower it to keep the suite
// fast.
var scryptWorkFactor = 18

// Seal encrypts a token with a passphrase-derived key. The output is
// a binary age ciphertext suitable for writing to a file. Neither
// buffer is closed; both are borrowed for the duration of the call.
func Seal(token, passphrase *secret.Buffer) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(passphrase.String())
	if err != nil {
		return nil, fmt.Errorf("credential: deriving recipient: %w", err)
	}
	recipient.SetWorkFactor(scryptWorkFactor)

	var sealed bytes.Buffer
	writer, err := age.Encrypt(&sealed, recipient)
	if err != nil {
		return nil, fmt.Errorf("credential: starting encryption: %w", err)
	}
	if _, err := writer.Write(token.Bytes()); err != nil {
		return nil, fmt.Errorf("credential: writing token: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("credential: finalizing encryption: %w", err)
	}

	return sealed.Bytes(), nil
}

// Open decrypts a sealed credential produced by Seal. The decrypted
// token is returned in a secret.Buffer; the passphrase is borrowed
// and not closed.
func Open(sealedData []byte, passphrase *secret.Buffer) (*secret.Buffer, error) {
	identity, err := age.NewScryptIdentity(passphrase.String())
	if err != nil {
		return nil, fmt.Errorf("credential: deriving identity: %w", err)
	}

	reader, err := age.Decrypt(bytes.NewReader(sealedData), identity)
	if err != nil {
		return nil, fmt.Errorf("credential: decrypting: %w", err)
	}

	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("credential: reading decrypted token: %w", err)
	}
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("credential: sealed file contains an empty token")
	}

	trimmed := bytes.TrimSpace(plaintext)
	if len(trimmed) == 0 {
		secret.Zero(plaintext)
		return nil, fmt.Errorf("credential: sealed file contains an empty token")
	}

	// NewFromBytes zeros trimmed; the surrounding whitespace needs
	// zeroing separately.
	buffer, err := secret.NewFromBytes(trimmed)
	secret.Zero(plaintext)
	if err != nil {
		return nil, fmt.Errorf("credential: protecting token: %w", err)
	}
	return buffer, nil
}

// IsSealed reports whether data begins with the age ciphertext header.
func IsSealed(data []byte) bool {
	return bytes.HasPrefix(data, []byte(ageHeader))
}

// WriteFile seals token with passphrase and writes the ciphertext to
// path with mode 0600.
func WriteFile(path string, token, passphrase *secret.Buffer) error {
	sealedData, err := Seal(token, passphrase)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, sealedData, 0600); err != nil {
		return fmt.Errorf("credential: writing %s: %w", path, err)
	}
	return nil
}

// ReadFile reads a sealed credential file and opens it with
// passphrase. Returns an error if the file is not sealed; use
// LoadToken for files that may be either form.
func ReadFile(path string, passphrase *secret.Buffer) (*secret.Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("credential: reading %s: %w", path, err)
	}
	if !IsSealed(data) {
		return nil, fmt.Errorf("credential: %s is not a sealed credential file", path)
	}
	return Open(data, passphrase)
}

// LoadToken loads a token from a file that may be sealed or plaintext.
// Sealed files prompt for the passphrase interactively; plaintext
// files load directly with surrounding whitespace trimmed. A path of
// "-" reads a plaintext token from stdin.
func LoadToken(path string) (*secret.Buffer, error) {
	if path == "-" {
		return secret.ReadFromPath(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("credential: reading %s: %w", path, err)
	}

	if !IsSealed(data) {
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) == 0 {
			secret.Zero(data)
			return nil, fmt.Errorf("credential: %s is empty", path)
		}
		buffer, err := secret.NewFromBytes(trimmed)
		secret.Zero(data)
		if err != nil {
			return nil, err
		}
		return buffer, nil
	}

	passphrase, err := secret.Prompt("passphrase")
	if err != nil {
		return nil, err
	}
	defer passphrase.Close()

	return Open(data, passphrase)
}
