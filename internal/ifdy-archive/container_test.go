package ifdyarchive

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"io"
	"testing"
)

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("rand.Read failed: %v", err)
	}
	return b
}

func TestDeriveKey(t *testing.T) {
	salt := []byte("some salt")
	k1, err := DeriveKey([]byte("secret"), salt)
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	if len(k1) != 32 {
		t.Fatalf("key length = %d, want 32", len(k1))
	}
	// PBKDF2-HMAC-SHA1, 1000 iterations; existing archives depend on it.
	const want = "40b939234d3b55a34f0146eb215b1244a320252ec0a877390a935669956f7fe7"
	if got := hex.EncodeToString(k1); got != want {
		t.Errorf("DeriveKey(secret, some salt) = %s, want %s", got, want)
	}
	k2, _ := DeriveKey([]byte("secret"), salt)
	if !bytes.Equal(k1, k2) {
		t.Error("DeriveKey is not deterministic")
	}
	if k3, _ := DeriveKey([]byte("secret"), []byte("other salt")); bytes.Equal(k1, k3) {
		t.Error("different salts produced the same key")
	}
	if k4, _ := DeriveKey([]byte("Secret"), salt); bytes.Equal(k1, k4) {
		t.Error("different passphrases produced the same key")
	}

	if _, err := DeriveKey([]byte("secret"), nil); !errors.Is(err, ErrMissingSalt) {
		t.Errorf("DeriveKey(nil salt) error = %v, want ErrMissingSalt", err)
	}
}

func TestHeaderLayoutRND1(t *testing.T) {
	salt := randomBytes(t, saltLen)
	hdr, err := newHeader(FormatRND1, salt, 0x0102030405)
	if err != nil {
		t.Fatalf("newHeader failed: %v", err)
	}
	raw, err := hdr.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}

	if len(raw) != 188 {
		t.Fatalf("header length = %d, want 188", len(raw))
	}
	if string(raw[0:4]) != "RND1" {
		t.Errorf("tag = %q, want RND1", raw[0:4])
	}
	if !bytes.Equal(raw[4:164], salt) {
		t.Error("salt not at offset 4")
	}
	if got := binary.LittleEndian.Uint64(raw[164:172]); got != 0x0102030405 {
		t.Errorf("length = %#x, want 0x0102030405", got)
	}
	if !bytes.Equal(raw[172:188], hdr.IV[:]) {
		t.Error("iv not at offset 172")
	}

	r := bytes.NewReader(append(raw, "ciphertext"...))
	parsed, err := ReadHeader(r)
	if err != nil {
		t.Fatalf("ReadHeader failed: %v", err)
	}
	if parsed.Version != FormatRND1 || !bytes.Equal(parsed.Salt, salt) ||
		parsed.PayloadLength != hdr.PayloadLength || parsed.IV != hdr.IV {
		t.Errorf("ReadHeader = %+v, want %+v", parsed, hdr)
	}
	if pos, _ := r.Seek(0, io.SeekCurrent); pos != 188 {
		t.Errorf("reader left at %d, want 188", pos)
	}
}

func TestHeaderLayoutLegacy(t *testing.T) {
	hdr, err := newHeader(FormatLegacy, nil, 1234)
	if err != nil {
		t.Fatalf("newHeader failed: %v", err)
	}
	if hdr.Salt != nil {
		t.Fatal("legacy header must not carry a salt")
	}
	raw, err := hdr.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}
	if len(raw) != 24 {
		t.Fatalf("header length = %d, want 24", len(raw))
	}
	if got := binary.LittleEndian.Uint64(raw[0:8]); got != 1234 {
		t.Errorf("length = %d, want 1234", got)
	}

	r := bytes.NewReader(append(raw, 0xAA, 0xBB))
	parsed, err := ReadHeader(r)
	if err != nil {
		t.Fatalf("ReadHeader failed: %v", err)
	}
	if parsed.Version != FormatLegacy || parsed.Salt != nil || parsed.PayloadLength != 1234 || parsed.IV != hdr.IV {
		t.Errorf("ReadHeader = %+v, want %+v", parsed, hdr)
	}
	if pos, _ := r.Seek(0, io.SeekCurrent); pos != 24 {
		t.Errorf("reader left at %d, want 24", pos)
	}
}

func TestReadHeaderTruncated(t *testing.T) {
	tests := map[string][]byte{
		"empty":         nil,
		"short tag":     []byte("RN"),
		"short salt":    append([]byte("RND1"), make([]byte, 10)...),
		"short length":  append(append([]byte("RND1"), make([]byte, saltLen)...), 1, 2, 3),
		"short iv":      append(append([]byte("RND1"), make([]byte, saltLen+lengthLen)...), 1),
		"legacy no iv":  make([]byte, lengthLen+3),
		"legacy length": make([]byte, 6),
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ReadHeader(bytes.NewReader(raw)); !errors.Is(err, ErrDecode) {
				t.Errorf("ReadHeader error = %v, want ErrDecode", err)
			}
		})
	}
}

func TestNewHeaderSalt(t *testing.T) {
	if _, err := newHeader(FormatRND1, []byte("too short"), 10); !errors.Is(err, ErrSaltLength) {
		t.Errorf("short salt error = %v, want ErrSaltLength", err)
	}

	a, err := newHeader(FormatRND1, nil, 10)
	if err != nil {
		t.Fatalf("newHeader failed: %v", err)
	}
	b, _ := newHeader(FormatRND1, nil, 10)
	if len(a.Salt) != saltLen {
		t.Fatalf("generated salt length = %d, want %d", len(a.Salt), saltLen)
	}
	if bytes.Equal(a.Salt, b.Salt) || a.IV == b.IV {
		t.Error("salt and iv must be fresh per header")
	}
}

func TestContainerPadding(t *testing.T) {
	lengths := []int{0, 1, 15, 16, 17, 31, 32, 33, 40, chunkLen - 1, chunkLen, chunkLen + 1, 2*chunkLen + 5}
	noSalt := func() ([]byte, error) {
		t.Fatal("embedded salt must not trigger external lookup")
		return nil, nil
	}

	for _, n := range lengths {
		payload := randomBytes(t, n)
		hdr, err := newHeader(FormatRND1, nil, n)
		if err != nil {
			t.Fatalf("newHeader(%d) failed: %v", n, err)
		}
		hdrKey, _ := DeriveKey([]byte("secret"), hdr.Salt)

		var buf bytes.Buffer
		if err := encodeContainer(&buf, hdr, hdrKey, payload, nil); err != nil {
			t.Fatalf("encodeContainer(%d) failed: %v", n, err)
		}
		wantLen := 188 + int(paddedLen(uint64(n)))
		if buf.Len() != wantLen {
			t.Errorf("n=%d: container length = %d, want %d", n, buf.Len(), wantLen)
		}

		// The tail of the last block is filled with spaces.
		ciphertext := append([]byte(nil), buf.Bytes()[188:]...)
		mode, _ := newCBC(hdrKey, hdr.IV, false)
		mode.CryptBlocks(ciphertext, ciphertext)
		if !bytes.Equal(ciphertext[:n], payload) {
			t.Errorf("n=%d: raw decryption does not match payload", n)
		}
		for i := n; i < len(ciphertext); i++ {
			if ciphertext[i] != ' ' {
				t.Errorf("n=%d: pad byte %d = %#x, want 0x20", n, i, ciphertext[i])
				break
			}
		}

		gotHdr, got, err := decodeContainer(bytes.NewReader(buf.Bytes()), []byte("secret"), noSalt, nil)
		if err != nil {
			t.Fatalf("decodeContainer(%d) failed: %v", n, err)
		}
		if gotHdr.PayloadLength != uint64(n) || !bytes.Equal(got, payload) {
			t.Errorf("n=%d: round trip mismatch (got %d bytes)", n, len(got))
		}
	}
}

func TestContainerLegacyUsesResolvedSalt(t *testing.T) {
	payload := []byte("legacy payload bytes")
	salt := []byte("external salt")
	hdr, err := newHeader(FormatLegacy, nil, len(payload))
	if err != nil {
		t.Fatalf("newHeader failed: %v", err)
	}
	key, _ := DeriveKey([]byte("secret"), salt)

	var buf bytes.Buffer
	if err := encodeContainer(&buf, hdr, key, payload, nil); err != nil {
		t.Fatalf("encodeContainer failed: %v", err)
	}
	if buf.Len() != 24+32 {
		t.Errorf("container length = %d, want 56", buf.Len())
	}

	calls := 0
	resolve := func() ([]byte, error) {
		calls++
		return salt, nil
	}
	gotHdr, got, err := decodeContainer(bytes.NewReader(buf.Bytes()), []byte("secret"), resolve, nil)
	if err != nil {
		t.Fatalf("decodeContainer failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("resolver called %d times, want 1", calls)
	}
	if gotHdr.Version != FormatLegacy || !bytes.Equal(got, payload) {
		t.Errorf("got version %s payload %q", gotHdr.Version, got)
	}

	failing := func() ([]byte, error) { return nil, ErrMissingSalt }
	if _, _, err := decodeContainer(bytes.NewReader(buf.Bytes()), []byte("secret"), failing, nil); !errors.Is(err, ErrMissingSalt) {
		t.Errorf("decodeContainer without salt error = %v, want ErrMissingSalt", err)
	}
}

func TestContainerTruncatedCiphertext(t *testing.T) {
	payload := randomBytes(t, 40)
	hdr, _ := newHeader(FormatRND1, nil, len(payload))
	key, _ := DeriveKey([]byte("secret"), hdr.Salt)
	var buf bytes.Buffer
	if err := encodeContainer(&buf, hdr, key, payload, nil); err != nil {
		t.Fatalf("encodeContainer failed: %v", err)
	}
	full := buf.Bytes()

	for _, cut := range []int{5, 16} {
		_, _, err := decodeContainer(bytes.NewReader(full[:len(full)-cut]), []byte("secret"), nil, nil)
		if !errors.Is(err, ErrDecode) {
			t.Errorf("cut %d: error = %v, want ErrDecode", cut, err)
		}
	}
}

func TestContainerProgress(t *testing.T) {
	payload := randomBytes(t, chunkLen*2+100)
	hdr, _ := newHeader(FormatRND1, nil, len(payload))
	key, _ := DeriveKey([]byte("secret"), hdr.Salt)

	var encCalls int
	var last [2]int64
	var buf bytes.Buffer
	err := encodeContainer(&buf, hdr, key, payload, func(done, total int64) {
		encCalls++
		last = [2]int64{done, total}
	})
	if err != nil {
		t.Fatalf("encodeContainer failed: %v", err)
	}
	if encCalls != 3 || last[0] != last[1] || last[1] != int64(paddedLen(uint64(len(payload)))) {
		t.Errorf("encrypt progress: %d calls, last %v", encCalls, last)
	}

	var decLast [2]int64
	_, _, err = decodeContainer(bytes.NewReader(buf.Bytes()), []byte("secret"), nil, func(done, total int64) {
		decLast = [2]int64{done, total}
	})
	if err != nil {
		t.Fatalf("decodeContainer failed: %v", err)
	}
	if decLast[0] != int64(len(payload)) || decLast[1] != int64(len(payload)) {
		t.Errorf("decrypt progress last = %v, want [%d %d]", decLast, len(payload), len(payload))
	}
}
