package signature

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDirSignatureIsOrderIndependent(t *testing.T) {
	a := AudioFileSignature{Path: "b.flac", FingerprintID: "fp-b", DurationSeconds: 200, SizeBytes: 111}
	b := AudioFileSignature{Path: "a.flac", FingerprintID: "fp-a", DurationSeconds: 100, SizeBytes: 222}

	sig1 := DirSignature([]AudioFileSignature{a, b}, nil)
	sig2 := DirSignature([]AudioFileSignature{b, a}, nil)

	assert.Equal(t, sig1.SignatureHash, sig2.SignatureHash, "signature must not depend on input order")
}

func TestDirSignatureIsPathIndependent(t *testing.T) {
	a1 := AudioFileSignature{Path: "01 - Track One.flac", FingerprintID: "fp-a", DurationSeconds: 100, SizeBytes: 111}
	b1 := AudioFileSignature{Path: "02 - Track Two.flac", FingerprintID: "fp-b", DurationSeconds: 200, SizeBytes: 222}

	// Same audio content, files renamed/swapped on disk — dir_id must match.
	a2 := AudioFileSignature{Path: "track-two-renamed.flac", FingerprintID: "fp-b", DurationSeconds: 200, SizeBytes: 222}
	b2 := AudioFileSignature{Path: "track-one-renamed.flac", FingerprintID: "fp-a", DurationSeconds: 100, SizeBytes: 111}

	sig1 := DirSignature([]AudioFileSignature{a1, b1}, nil)
	sig2 := DirSignature([]AudioFileSignature{a2, b2}, nil)

	assert.Equal(t, sig1.SignatureHash, sig2.SignatureHash, "signature must depend only on content, never on file paths")
}

func TestDirSignatureIgnoresSizeBytes(t *testing.T) {
	a := AudioFileSignature{Path: "a.flac", FingerprintID: "fp-a", DurationSeconds: 100, SizeBytes: 111}
	aResized := a
	aResized.SizeBytes = 9999

	sig1 := DirSignature([]AudioFileSignature{a}, nil)
	sig2 := DirSignature([]AudioFileSignature{aResized}, nil)

	assert.Equal(t, sig1.SignatureHash, sig2.SignatureHash, "signature hash must be invariant under size_bytes changes")
}

func TestDirSignatureChangesWithFingerprint(t *testing.T) {
	a := AudioFileSignature{Path: "a.flac", FingerprintID: "fp-a", DurationSeconds: 100}
	b := a
	b.FingerprintID = "fp-a-changed"

	sig1 := DirSignature([]AudioFileSignature{a}, nil)
	sig2 := DirSignature([]AudioFileSignature{b}, nil)

	assert.NotEqual(t, sig1.SignatureHash, sig2.SignatureHash, "signature hash must change when fingerprint_id changes")
}

func TestDirIDIsSignatureHash(t *testing.T) {
	a := AudioFileSignature{Path: "a.flac", FingerprintID: "fp-a", DurationSeconds: 100}
	sig := DirSignature([]AudioFileSignature{a}, nil)
	assert.Equal(t, sig.SignatureHash, DirID(sig), "DirID must equal SignatureHash")
}
