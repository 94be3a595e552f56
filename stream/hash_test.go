package stream

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashReader_Digest(t *testing.T) {
	t.Parallel()

	data := []byte("the quick brown fox")
	want := sha256.Sum256(data)

	hr, err := NewHashReader(io.NopCloser(bytes.NewReader(data)), "")
	require.NoError(t, err)

	got, err := io.ReadAll(hr)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, hex.EncodeToString(want[:]), hr.Hexdigest())
	require.NoError(t, hr.Close())
}

func TestHashReader_VerifiesOnClose(t *testing.T) {
	t.Parallel()

	data := []byte("content")
	want := sha256.Sum256(data)

	hr, err := NewHashReader(io.NopCloser(bytes.NewReader(data)), hex.EncodeToString(want[:]))
	require.NoError(t, err)
	_, err = io.ReadAll(hr)
	require.NoError(t, err)
	require.NoError(t, hr.Close())
}

func TestHashReader_MismatchOnClose(t *testing.T) {
	t.Parallel()

	hr, err := NewHashReader(io.NopCloser(strings.NewReader("content")), strings.Repeat("ab", 32))
	require.NoError(t, err)
	_, err = io.ReadAll(hr)
	require.NoError(t, err)

	err = hr.Close()
	require.ErrorIs(t, err, ErrHashMismatch)
}

func TestHashReader_CaseInsensitiveExpected(t *testing.T) {
	t.Parallel()

	data := []byte("content")
	want := sha256.Sum256(data)

	hr, err := NewHashReader(io.NopCloser(bytes.NewReader(data)), strings.ToUpper(hex.EncodeToString(want[:])))
	require.NoError(t, err)
	_, err = io.ReadAll(hr)
	require.NoError(t, err)
	require.NoError(t, hr.Close())
}

func TestHashReader_RejectsMalformedExpected(t *testing.T) {
	t.Parallel()

	_, err := NewHashReader(io.NopCloser(strings.NewReader("")), "not-a-digest")
	require.Error(t, err)
}

func TestNormalizeSHA256(t *testing.T) {
	t.Parallel()

	sum := sha256.Sum256([]byte("x"))
	hexDigest := hex.EncodeToString(sum[:])

	got, err := NormalizeSHA256(hexDigest)
	require.NoError(t, err)
	assert.Equal(t, hexDigest, got)

	got, err = NormalizeSHA256("sha256:" + hexDigest)
	require.NoError(t, err)
	assert.Equal(t, hexDigest, got)

	_, err = NormalizeSHA256("sha512:" + hexDigest)
	require.Error(t, err)
}

func TestHashWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	hw := NewHashWriter(&buf)

	data := []byte("streamed in two writes")
	_, err := hw.Write(data[:5])
	require.NoError(t, err)
	_, err = hw.Write(data[5:])
	require.NoError(t, err)

	want := sha256.Sum256(data)
	assert.Equal(t, hex.EncodeToString(want[:]), hw.Hexdigest())
	assert.Equal(t, data, buf.Bytes())
}
