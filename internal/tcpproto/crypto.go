package tcpproto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/curve25519"
)

// keySize is the X25519 key size and also the AES-256 key size, so the raw
// shared secret (after hashing) is used directly as the AEAD key.
const keySize = 32

// frameCipher seals and opens post-handshake frame payloads. sessionCipher
// (X25519 ECDH + AES-256-GCM) and plainCipher (the negotiated-no-encryption
// passthrough) both implement it, so Conn's send/receive path never needs
// to know which the handshake negotiated.
type frameCipher interface {
	seal(plaintext []byte) ([]byte, error)
	open(sealed []byte) ([]byte, error)
}

// plainCipher is the frameCipher used when the handshake negotiates away
// encryption: frames still pass through the same length-prefixed framing,
// just without a nonce or AEAD tag. Callers are still authenticated by
// their session token on every command; this only trades confidentiality
// and tamper-detection for a cheaper connection on networks that don't need
// them.
type plainCipher struct{}

func (plainCipher) seal(plaintext []byte) ([]byte, error) { return plaintext, nil }
func (plainCipher) open(sealed []byte) ([]byte, error) { return sealed, nil }

var errHandshakeKey = errors.New("tcpproto: invalid handshake key material")

// keyPair is an ephemeral X25519 key pair generated fresh for each
// connection's handshake — connections never reuse key
// material across sessions.
type keyPair struct {
	private [keySize]byte
	public [keySize]byte
}

// generateKeyPair produces a fresh X25519 key pair.
func generateKeyPair() (keyPair, error) {
	var kp keyPair
	if _, err := io.ReadFull(rand.Reader, kp.private[:]); err != nil {
		return keyPair{}, err
	}
	// The random scalar is stored unclamped; curve25519.X25519 applies the
	// RFC 7748 clamping internally, both here and in the later ECDH.
	pub, err := curve25519.X25519(kp.private[:], curve25519.Basepoint)
	if err != nil {
		return keyPair{}, err
	}
	copy(kp.public[:], pub)
	return kp, nil
}

// sharedSecret runs X25519 ECDH between our private key and the peer's
// public key, then hashes the result with SHA-256 to produce a uniformly
// random AES-256 key — raw ECDH output is not safe to use directly as a
// symmetric key (it can have low-entropy bit patterns for certain inputs).
func sharedSecret(priv [keySize]byte, peerPublic [keySize]byte) ([keySize]byte, error) {
	raw, err := curve25519.X25519(priv[:], peerPublic[:])
	if err != nil {
		return [keySize]byte{}, err
	}
	// curve25519.X25519 returns an all-zero output for a small number of
	// degenerate peer keys; treat that as an invalid handshake rather than
	// deriving a known, attacker-predictable session key.
	var zero [keySize]byte
	allZero := true
	for _, b := range raw {
		if b != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return zero, errHandshakeKey
	}
	return sha256.Sum256(raw), nil
}

// sessionCipher encrypts and decrypts post-handshake frame payloads with
// AES-256-GCM. No ecosystem AEAD in the retrieval pack improves on the
// standard library's own GCM implementation for this, so the primitive is
// stdlib by design (see DESIGN.md).
type sessionCipher struct {
	aead cipher.AEAD
}

func newSessionCipher(key [keySize]byte) (*sessionCipher, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &sessionCipher{aead: aead}, nil
}

// seal encrypts plaintext, prefixing the ciphertext with a fresh random
// nonce so the receiver can recover it.
func (c *sessionCipher) seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// open decrypts a frame produced by seal.
func (c *sessionCipher) open(sealed []byte) ([]byte, error) {
	n := c.aead.NonceSize()
	if len(sealed) < n {
		return nil, errors.New("tcpproto: sealed frame shorter than nonce")
	}
	nonce, ciphertext := sealed[:n], sealed[n:]
	return c.aead.Open(nil, nonce, ciphertext, nil)
}
