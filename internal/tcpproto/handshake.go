package tcpproto

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/lair-chat/lair-chat-server/internal/apperr"
	"github.com/lair-chat/lair-chat-server/internal/wire"
)

// protocolVersion is the only handshake version this server speaks. A
// mismatch fails the handshake outright rather than attempting to
// negotiate, since there is exactly one version defined.
const protocolVersion = 1

// featureEncryption is the only negotiable handshake feature so far: a
// client lists it in clientHello.Features to offer the X25519 key
// exchange. The connection ends up encrypted whenever either side wants
// it — the server's own requireEncryption policy always wins over a
// client that didn't ask.
const featureEncryption = "encryption"

var errUnsupportedProtocolVersion = errors.New("tcpproto: unsupported protocol version")

// clientHello is the first frame a client sends, unencrypted: the protocol
// version it speaks, the features it offers, and an ephemeral X25519
// public key it generates regardless of whether it asked for encryption,
// since the server may still require it.
type clientHello struct {
	ProtocolVersion int `json:"protocol_version"`
	Features []string `json:"features,omitempty"`
	PublicKey []byte `json:"public_key"`
}

// serverHello is the server's reply. EncryptionRequired reports this
// server's own policy regardless of outcome; Encrypted is the negotiated
// outcome and is the field that actually decides whether a key exchange
// follows.
type serverHello struct {
	ProtocolVersion int `json:"protocol_version"`
	EncryptionRequired bool `json:"encryption_required"`
	Encrypted bool `json:"encrypted"`
	PublicKey []byte `json:"public_key,omitempty"`
}

func offersFeature(features []string, want string) bool {
	for _, f := range features {
		if f == want {
			return true
		}
	}
	return false
}

// serverHandshake runs the ClientHello/ServerHello sequence over rw, which
// must not yet be encrypted, negotiating whether the rest of the
// connection is encrypted rather than mandating it: the connection ends up
// encrypted whenever requireEncryption is set or the client offered
// featureEncryption, and proceeds in plaintext otherwise — callers on an
// unencrypted connection are still authenticated by their session token on
// every command, same as an encrypted one. A protocol_version mismatch is
// reported to the client as a wire-level version_mismatch error frame
// before the handshake fails, instead of silently dropping the connection.
func serverHandshake(rw io.ReadWriter, requireEncryption bool) (frameCipher, error) {
	raw, err := readFrame(rw)
	if err != nil {
		return nil, err
	}
	var hello clientHello
	if err := json.Unmarshal(raw, &hello); err != nil {
		return nil, err
	}
	if hello.ProtocolVersion != protocolVersion {
		sendVersionMismatch(rw)
		return nil, errUnsupportedProtocolVersion
	}

	if !requireEncryption && !offersFeature(hello.Features, featureEncryption) {
		reply, err := json.Marshal(serverHello{ProtocolVersion: protocolVersion, EncryptionRequired: false, Encrypted: false})
		if err != nil {
			return nil, err
		}
		if err := writeFrame(rw, reply); err != nil {
			return nil, err
		}
		return plainCipher{}, nil
	}

	if len(hello.PublicKey) != keySize {
		return nil, errHandshakeKey
	}
	var peerPublic [keySize]byte
	copy(peerPublic[:], hello.PublicKey)

	kp, err := generateKeyPair()
	if err != nil {
		return nil, err
	}
	secret, err := sharedSecret(kp.private, peerPublic)
	if err != nil {
		return nil, err
	}

	reply, err := json.Marshal(serverHello{
		ProtocolVersion: protocolVersion,
		EncryptionRequired: requireEncryption,
		Encrypted: true,
		PublicKey: kp.public[:],
	})
	if err != nil {
		return nil, err
	}
	if err := writeFrame(rw, reply); err != nil {
		return nil, err
	}
	return newSessionCipher(secret)
}

// sendVersionMismatch writes the same ErrorDTO-shaped frame a command error
// would produce, using apperr.CodeVersionMismatch, so a client that
// understands the wire error format can surface a meaningful message
// instead of just observing a dropped connection. Best-effort: a write
// failure here doesn't change the handshake's outcome, which is already a
// failure.
func sendVersionMismatch(rw io.ReadWriter) {
	versionErr := apperr.New(apperr.CodeVersionMismatch, "unsupported protocol version")
	if frame, err := wire.EncodeProtocolError(versionErr, ""); err == nil {
		_ = writeFrame(rw, frame)
	}
}

// clientHandshake performs the client side; it exists alongside
// serverHandshake so both ends of the exchange can be exercised in tests
// without a second implementation elsewhere in the module.
// requestEncryption offers featureEncryption; the server may still require
// encryption even when the caller passes false.
func clientHandshake(rw io.ReadWriter, requestEncryption bool) (frameCipher, error) {
	kp, err := generateKeyPair()
	if err != nil {
		return nil, err
	}
	var features []string
	if requestEncryption {
		features = []string{featureEncryption}
	}

	hello, err := json.Marshal(clientHello{ProtocolVersion: protocolVersion, Features: features, PublicKey: kp.public[:]})
	if err != nil {
		return nil, err
	}
	if err := writeFrame(rw, hello); err != nil {
		return nil, err
	}

	raw, err := readFrame(rw)
	if err != nil {
		return nil, err
	}
	var reply serverHello
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, err
	}
	if reply.ProtocolVersion != protocolVersion {
		return nil, errUnsupportedProtocolVersion
	}

	if !reply.Encrypted {
		return plainCipher{}, nil
	}
	if len(reply.PublicKey) != keySize {
		return nil, errHandshakeKey
	}
	var peerPublic [keySize]byte
	copy(peerPublic[:], reply.PublicKey)

	secret, err := sharedSecret(kp.private, peerPublic)
	if err != nil {
		return nil, err
	}
	return newSessionCipher(secret)
}
