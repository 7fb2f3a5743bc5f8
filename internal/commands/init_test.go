package commands_test

import (
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	accountsCSV "github.com/bankfeed/bankfeed/internal/accounts"
	"github.com/bankfeed/bankfeed/internal/model"
)

var binaryPath string

func TestMain(m *testing.M) {
	// Build the binary once for all tests.
	tmpDir, err := os.MkdirTemp("", "bankfeed-test-*")
	if err != nil {
		panic(err)
	}

	binaryPath = filepath.Join(tmpDir, "bankfeed")
	cmd := exec.Command("go", "build", "-o", binaryPath, "../../cmd/bankfeed")
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		os.RemoveAll(tmpDir)
		panic("failed to build binary: " + err.Error())
	}

	code := m.Run()
	os.RemoveAll(tmpDir)
	os.Exit(code)
}

func runBankfeed(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(), "BANKFEED_LOG_LEVEL=warn")
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func readChart(t *testing.T, dir string) []model.Account {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, "accounts", "chart-of-accounts.csv"))
	require.NoError(t, err)
	defer f.Close()

	accts, err := accountsCSV.ReadAccounts(f)
	require.NoError(t, err)
	return accts
}

func TestInit_CreatesStructure(t *testing.T) {
	dir := t.TempDir()
	_, err := runBankfeed(t, "init", dir, "--name", "Test Ledger")
	require.NoError(t, err)

	expectedDirs := []string{
		"accounts",
		"logs",
		"import",
		filepath.Join("import", "processed"),
	}
	for _, d := range expectedDirs {
		info, err := os.Stat(filepath.Join(dir, d))
		require.NoError(t, err, "directory %s should exist", d)
		assert.True(t, info.IsDir(), "%s should be a directory", d)
	}
}

func TestInit_Config(t *testing.T) {
	dir := t.TempDir()
	_, err := runBankfeed(t, "init", dir, "--name", "My Household", "--base-currency", "chf")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "bankfeed.yaml"))
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "name: My Household")
	assert.Contains(t, contents, "base_currency: CHF")
	assert.Contains(t, contents, "backend: csv")
	assert.Contains(t, contents, "remote_account: checking")
}

func TestInit_Accounts(t *testing.T) {
	dir := t.TempDir()
	_, err := runBankfeed(t, "init", dir, "--name", "Test Ledger")
	require.NoError(t, err)

	accts := readChart(t, dir)
	assert.Len(t, accts, 11, "default personal chart has 11 accounts")
	for _, a := range accts {
		assert.Equal(t, 1, a.UserID)
	}
}

func TestInit_HouseholdChart(t *testing.T) {
	dir := t.TempDir()
	_, err := runBankfeed(t, "init", dir, "--name", "Test Ledger", "--chart", "household")
	require.NoError(t, err)

	assert.Len(t, readChart(t, dir), 13)
}

func TestInit_GitRepo(t *testing.T) {
	dir := t.TempDir()
	_, err := runBankfeed(t, "init", dir, "--name", "Test Ledger")
	require.NoError(t, err)

	// .git directory should exist.
	_, err = os.Stat(filepath.Join(dir, ".git"))
	require.NoError(t, err, ".git should exist")

	// git log should have an init commit.
	log := exec.Command("git", "log", "--format=%s", "-1")
	log.Dir = dir
	out, err := log.Output()
	require.NoError(t, err)
	assert.Contains(t, string(out), "init:")

	// Verify author.
	authorLog := exec.Command("git", "log", "--format=%an <%ae>", "-1")
	authorLog.Dir = dir
	out, err = authorLog.Output()
	require.NoError(t, err)
	assert.Contains(t, string(out), "bankfeed <bankfeed@localhost>")
}

func TestInit_Gitignore(t *testing.T) {
	dir := t.TempDir()
	_, err := runBankfeed(t, "init", dir, "--name", "Test Ledger")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
	contents := string(data)

	for _, pattern := range []string{".env", "*.db"} {
		assert.Contains(t, contents, pattern, ".gitignore should contain %s", pattern)
	}
}

func TestInit_RequiresName(t *testing.T) {
	dir := t.TempDir()
	_, err := runBankfeed(t, "init", dir)
	require.Error(t, err, "init without --name should fail")
}

func copyFixture(t *testing.T, name, dst string) {
	t.Helper()
	src, err := os.Open(filepath.Join("..", "..", "testdata", name))
	require.NoError(t, err)
	defer src.Close()

	out, err := os.Create(dst)
	require.NoError(t, err)
	defer out.Close()

	_, err = io.Copy(out, src)
	require.NoError(t, err)
}
