package backup

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// GPGEncryptor encrypts files by shelling out to the gpg binary. The
// recipient public key must already be present in the invoking user's
// keyring.
type GPGEncryptor struct {
	keyID   string
	command string
}

// NewGPGEncryptor creates an encryptor for the given recipient key ID
func NewGPGEncryptor(keyID string) *GPGEncryptor {
	return &GPGEncryptor{
		keyID:   keyID,
		command: "gpg",
	}
}

// Suffix returns the filename suffix appended to encrypted files
func (g *GPGEncryptor) Suffix() string {
	return ".gpg"
}

// EncryptFile encrypts path to a sibling .gpg file and returns the
// sibling's path. gpg writes the output itself, so success is confirmed
// by statting the result. The plaintext is left untouched.
func (g *GPGEncryptor) EncryptFile(ctx context.Context, path string) (string, error) {
	outPath := path + g.Suffix()

	cmd := exec.CommandContext(ctx, g.command,
		"--batch",
		"--yes",
		"--trust-model", "always",
		"--recipient", g.keyID,
		"--output", outPath,
		"--encrypt", path,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		os.Remove(outPath)
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return "", NewEncryptionError(fmt.Sprintf("gpg encryption of %s failed: %s", path, detail), err)
		}
		return "", NewEncryptionError(fmt.Sprintf("gpg encryption of %s failed", path), err)
	}

	if _, err := os.Stat(outPath); err != nil {
		return "", NewEncryptionError(fmt.Sprintf("gpg reported success but produced no output for %s", path), err)
	}

	return outPath, nil
}
