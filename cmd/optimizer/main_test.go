package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestRunRejectsNonPDF(t *testing.T) {
	_, err := execute(t, "run", "--pdf", "profile.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not a PDF file")
}

func TestRunRequiresExistingFile(t *testing.T) {
	_, err := execute(t, "run", "--pdf", filepath.Join(t.TempDir(), "missing.pdf"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

func TestExtractRequiresInput(t *testing.T) {
	_, err := execute(t, "extract")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--object-key")
}

func TestReadProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"personal_info":{"name":"Ada Lovelace"},"skills":["Analysis"]}`), 0o600))

	p, err := readProfile(path)
	require.NoError(t, err)
	require.NotNil(t, p.PersonalInfo.Name)
	assert.Equal(t, "Ada Lovelace", *p.PersonalInfo.Name)
	assert.Len(t, p.Skills, 1)

	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))
	_, err = readProfile(path)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "decode"))
}
