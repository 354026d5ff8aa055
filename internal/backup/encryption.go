package backup

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/nacl/box"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	naclChunkSize      = 64 * 1024
	naclNoncePrefixLen = 16
)

// NaClEncryptor encrypts files to a recipient X25519 public key using a
// hybrid scheme: a fresh symmetric key sealed with an anonymous box,
// followed by the payload in length-framed secretbox chunks. Each chunk
// nonce is the random 16-byte file prefix plus a big-endian counter, so
// chunks cannot be reordered within a file.
//
// The encryptor holds no private material and cannot decrypt its own
// output; only the recipient key holder can.
type NaClEncryptor struct {
	recipient [32]byte
}

// NewNaClEncryptor creates an encryptor for the given recipient key
func NewNaClEncryptor(recipient [32]byte) *NaClEncryptor {
	return &NaClEncryptor{recipient: recipient}
}

// Suffix returns the filename suffix appended to encrypted files
func (e *NaClEncryptor) Suffix() string {
	return ".enc"
}

// EncryptFile encrypts path to a sibling file and returns the sibling's
// path. The sibling is written under the in-progress suffix and renamed
// only once fully synced, so its presence means the encryption completed.
// The plaintext is left untouched.
func (e *NaClEncryptor) EncryptFile(ctx context.Context, path string) (string, error) {
	in, err := os.Open(path)
	if err != nil {
		return "", NewEncryptionError(fmt.Sprintf("cannot open %s for encryption", path), err)
	}
	defer in.Close()

	outPath := path + e.Suffix()
	tmpPath := outPath + InProgressSuffix
	out, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", NewEncryptionError(fmt.Sprintf("cannot create %s", tmpPath), err)
	}

	if err := e.encryptStream(ctx, out, in); err != nil {
		out.Close()
		os.Remove(tmpPath)
		return "", err
	}

	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(tmpPath)
		return "", NewEncryptionError(fmt.Sprintf("cannot sync %s", tmpPath), err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmpPath)
		return "", NewEncryptionError(fmt.Sprintf("cannot close %s", tmpPath), err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		os.Remove(tmpPath)
		return "", NewEncryptionError(fmt.Sprintf("cannot finalize %s", outPath), err)
	}

	return outPath, nil
}

func (e *NaClEncryptor) encryptStream(ctx context.Context, w io.Writer, r io.Reader) error {
	var sessionKey [32]byte
	if _, err := rand.Read(sessionKey[:]); err != nil {
		return NewEncryptionError("failed to generate session key", err)
	}

	sealedKey, err := box.SealAnonymous(nil, sessionKey[:], &e.recipient, rand.Reader)
	if err != nil {
		return NewEncryptionError("failed to seal session key", err)
	}
	if _, err := w.Write(sealedKey); err != nil {
		return NewEncryptionError("failed to write key header", err)
	}

	var prefix [naclNoncePrefixLen]byte
	if _, err := rand.Read(prefix[:]); err != nil {
		return NewEncryptionError("failed to generate nonce prefix", err)
	}
	if _, err := w.Write(prefix[:]); err != nil {
		return NewEncryptionError("failed to write nonce header", err)
	}

	buf := make([]byte, naclChunkSize)
	var counter uint64
	for {
		if err := ctx.Err(); err != nil {
			return NewEncryptionError("encryption interrupted", err)
		}

		n, readErr := io.ReadFull(r, buf)
		if readErr == io.EOF {
			break
		}
		if readErr != nil && readErr != io.ErrUnexpectedEOF {
			return NewEncryptionError("failed to read plaintext", readErr)
		}

		nonce := chunkNonce(prefix, counter)
		sealed := secretbox.Seal(nil, buf[:n], &nonce, &sessionKey)

		var frame [4]byte
		binary.BigEndian.PutUint32(frame[:], uint32(len(sealed)))
		if _, err := w.Write(frame[:]); err != nil {
			return NewEncryptionError("failed to write chunk frame", err)
		}
		if _, err := w.Write(sealed); err != nil {
			return NewEncryptionError("failed to write encrypted chunk", err)
		}

		counter++
		if readErr == io.ErrUnexpectedEOF {
			break
		}
	}

	return nil
}

func chunkNonce(prefix [naclNoncePrefixLen]byte, counter uint64) [24]byte {
	var nonce [24]byte
	copy(nonce[:naclNoncePrefixLen], prefix[:])
	binary.BigEndian.PutUint64(nonce[naclNoncePrefixLen:], counter)
	return nonce
}
