package artifacts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

const placeholder = "__$7e3a4d5b2c1f0e9d8c7b6a5f4e3d2c1b0a$__"

func compiledJSON(bytecode, linkRefs string) string {
	return `{
		"abi": [{"type":"function","name":"owner","inputs":[],"outputs":[{"name":"","type":"address"}],"stateMutability":"view"}],
		"evm": {"bytecode": {"object": "` + bytecode + `", "linkReferences": ` + linkRefs + `}}
	}`
}

func writeBuild(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, CompiledFolder)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return root
}

func TestLoadAndLink(t *testing.T) {
	require := require.New(t)

	root := writeBuild(t, map[string]string{
		"SafeDecimalMath.json": compiledJSON("6001", `{}`),
		"Issuer.json": compiledJSON("0x60"+placeholder+"00",
			`{"contracts/SafeDecimalMath.sol": {"SafeDecimalMath": [{"start": 1, "length": 20}]}}`),
		"README.md": "ignored",
	})

	set, err := Load(root)
	require.NoError(err)
	require.Equal([]string{"Issuer", "SafeDecimalMath"}, set.Names())
	require.False(set.EarliestCompiled.IsZero())

	issuer, ok := set.Get("Issuer")
	require.True(ok)
	require.Contains(issuer.ABI.Methods, "owner")
	require.False(strings.HasPrefix(issuer.Bytecode, "0x"))
	require.Equal([]string{"SafeDecimalMath"}, issuer.LibraryNames())

	_, err = issuer.Link(nil)
	require.Error(err)

	lib := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	code, err := issuer.Link(map[string]common.Address{"SafeDecimalMath": lib})
	require.NoError(err)
	require.Len(code, 22)
	require.Equal(byte(0x60), code[0])
	require.Equal(lib.Bytes(), code[1:21])
	require.Equal(byte(0x00), code[21])

	// Linking must not modify the stored unlinked bytecode.
	require.Contains(issuer.Bytecode, placeholder)

	safe, _ := set.Get("SafeDecimalMath")
	code, err = safe.Link(nil)
	require.NoError(err)
	require.Equal([]byte{0x60, 0x01}, code)
}

func TestLoadErrors(t *testing.T) {
	require := require.New(t)

	_, err := Load(t.TempDir())
	require.Error(err)

	root := writeBuild(t, map[string]string{"Bad.json": `{"abi": "nope"}`})
	_, err = Load(root)
	require.Error(err)
}

func TestFingerprint(t *testing.T) {
	require := require.New(t)

	require.Equal(Fingerprint("0x6080ABCD"), Fingerprint("6080abcd"))
	require.NotEqual(Fingerprint("6080"), Fingerprint("6081"))
}

func TestLatestSourceChange(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()

	older := filepath.Join(dir, "A.sol")
	newer := filepath.Join(dir, "nested", "B.sol")
	require.NoError(os.MkdirAll(filepath.Dir(newer), 0o755))
	require.NoError(os.WriteFile(older, []byte("contract A {}"), 0o644))
	require.NoError(os.WriteFile(newer, []byte("contract B {}"), 0o644))
	require.NoError(os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	then := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	later := then.Add(time.Hour)
	require.NoError(os.Chtimes(older, then, then))
	require.NoError(os.Chtimes(newer, later, later))
	require.NoError(os.Chtimes(filepath.Join(dir, "notes.txt"), later.Add(time.Hour), later.Add(time.Hour)))

	latest, err := LatestSourceChange(dir)
	require.NoError(err)
	require.True(latest.Equal(later))
}
