package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/dotm/pkg/errors"
	"github.com/arthur-debert/dotm/pkg/hashutil"
	"github.com/arthur-debert/dotm/pkg/scanner"
)

func makeEntry(target, pkg, hash string) DeployEntry {
	return DeployEntry{
		Target:      target,
		Staged:      target,
		Source:      "/src" + target,
		ContentHash: hash,
		Kind:        scanner.KindBase,
		Package:     pkg,
	}
}

func TestLoadMissingStateIsEmpty(t *testing.T) {
	s, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, s.Entries())
	assert.Equal(t, CurrentVersion, s.Version())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	s.Record(DeployEntry{
		Target:        "/home/user/.bashrc",
		Staged:        "/home/user/dotfiles/.staged/.bashrc",
		Source:        "/home/user/dotfiles/packages/shell/.bashrc",
		ContentHash:   "abc123",
		OriginalHash:  "def456",
		Kind:          scanner.KindOverride,
		Package:       "shell",
		Owner:         "root",
		Group:         "root",
		Mode:          "640",
		OriginalOwner: "user",
		OriginalGroup: "user",
		OriginalMode:  "644",
	})
	s.Record(makeEntry("/home/user/.zshrc", "shell", "h2"))
	require.NoError(t, s.Save())

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, s.Entries(), loaded.Entries())
}

func TestLoadNewerVersionFails(t *testing.T) {
	dir := t.TempDir()
	content, err := json.Marshal(persistedState{Version: CurrentVersion + 1})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, StateFileName), content, 0644))

	_, err = Load(dir)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrStateVersion))
}

func TestLoadOlderVersionUpgrades(t *testing.T) {
	dir := t.TempDir()
	content, err := json.Marshal(persistedState{Version: 1})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, StateFileName), content, 0644))

	s, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, s.Version())
}

func TestLegacyBackupDirMigrated(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "backup"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "backup", "somehash"), []byte("old"), 0644))

	s, err := Load(dir)
	require.NoError(t, err)

	content, err := s.LoadOriginal("somehash")
	require.NoError(t, err)
	assert.Equal(t, []byte("old"), content)
	assert.NoDirExists(t, filepath.Join(dir, "backup"))
}

func TestRecordUpsertsByTarget(t *testing.T) {
	s := New(t.TempDir())
	s.Record(makeEntry("/t", "pkg", "h1"))
	s.Record(makeEntry("/t", "pkg", "h2"))
	require.Len(t, s.Entries(), 1)
	assert.Equal(t, "h2", s.Entries()[0].ContentHash)
}

func TestRecordKeepsOriginalSnapshot(t *testing.T) {
	s := New(t.TempDir())
	first := makeEntry("/t", "pkg", "h1")
	first.OriginalHash = "orig"
	first.OriginalOwner = "user"
	first.OriginalMode = "644"
	s.Record(first)

	// A later redeploy sees no pre-existing file; the snapshot survives
	s.Record(makeEntry("/t", "pkg", "h2"))
	require.Len(t, s.Entries(), 1)
	assert.Equal(t, "orig", s.Entries()[0].OriginalHash)
	assert.Equal(t, "user", s.Entries()[0].OriginalOwner)
	assert.Equal(t, "644", s.Entries()[0].OriginalMode)
}

func TestRemove(t *testing.T) {
	s := New(t.TempDir())
	s.Record(makeEntry("/a", "p", "h"))
	s.Record(makeEntry("/b", "p", "h"))
	assert.True(t, s.Remove("/a"))
	assert.False(t, s.Remove("/a"))
	require.Len(t, s.Entries(), 1)
	assert.Equal(t, "/b", s.Entries()[0].Target)
}

func TestEntriesForPackage(t *testing.T) {
	s := New(t.TempDir())
	s.Record(makeEntry("/a", "shell", "h"))
	s.Record(makeEntry("/b", "kde", "h"))
	s.Record(makeEntry("/c", "shell", "h"))

	assert.Len(t, s.EntriesForPackage(""), 3)
	assert.Len(t, s.EntriesForPackage("shell"), 2)
	assert.Empty(t, s.EntriesForPackage("nope"))
}

func TestBlobStoreWriteIfAbsent(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	content := []byte("blob content")
	hash := hashutil.HashContent(content)
	require.NoError(t, s.StoreDeployed(hash, content))

	// A second store with the same hash must not rewrite the blob
	path := filepath.Join(dir, DeployedDirName, hash)
	require.NoError(t, os.Chmod(path, 0444))
	require.NoError(t, s.StoreDeployed(hash, []byte("different")))

	loaded, err := s.LoadDeployed(hash)
	require.NoError(t, err)
	assert.Equal(t, content, loaded)
}

func TestOriginalsStoreSeparateFromDeployed(t *testing.T) {
	s := New(t.TempDir())
	require.NoError(t, s.StoreOriginal("h1", []byte("original")))

	_, err := s.LoadDeployed("h1")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrBlobMissing))

	content, err := s.LoadOriginal("h1")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), content)
}

func TestCheckEntryStatusMissing(t *testing.T) {
	s := New(t.TempDir())
	status, err := s.CheckEntryStatus(makeEntry(filepath.Join(t.TempDir(), "gone"), "p", "h"))
	require.NoError(t, err)
	assert.False(t, status.Exists)
}

func TestCheckEntryStatusHealthy(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "app.conf")
	content := []byte("deployed content")
	require.NoError(t, os.WriteFile(target, content, 0644))

	s := New(t.TempDir())
	entry := makeEntry(target, "p", hashutil.HashContent(content))

	status, err := s.CheckEntryStatus(entry)
	require.NoError(t, err)
	assert.True(t, status.Exists)
	assert.False(t, status.ContentModified)
	assert.True(t, status.Healthy())
}

func TestCheckEntryStatusContentModified(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "app.conf")
	require.NoError(t, os.WriteFile(target, []byte("original"), 0644))

	s := New(t.TempDir())
	entry := makeEntry(target, "p", hashutil.HashContent([]byte("original")))

	require.NoError(t, os.WriteFile(target, []byte("edited out of band"), 0644))

	status, err := s.CheckEntryStatus(entry)
	require.NoError(t, err)
	assert.True(t, status.Exists)
	assert.True(t, status.ContentModified)
	assert.False(t, status.Healthy())
}

func TestCheckEntryStatusModeDrift(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "app.conf")
	content := []byte("x")
	require.NoError(t, os.WriteFile(target, content, 0600))

	s := New(t.TempDir())
	entry := makeEntry(target, "p", hashutil.HashContent(content))
	entry.Mode = "640"

	status, err := s.CheckEntryStatus(entry)
	require.NoError(t, err)
	assert.True(t, status.ModeChanged)

	// Fields dotm never set are never flagged
	assert.False(t, status.OwnerChanged)
	assert.False(t, status.GroupChanged)
}

func TestCheckEntryStatusUnmanagedMetadataInvisible(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "app.conf")
	content := []byte("x")
	require.NoError(t, os.WriteFile(target, content, 0600))

	s := New(t.TempDir())
	entry := makeEntry(target, "p", hashutil.HashContent(content))
	// No resolved metadata recorded: a chmod out of band stays invisible
	status, err := s.CheckEntryStatus(entry)
	require.NoError(t, err)
	assert.True(t, status.Healthy())
}

func TestCheckEntryStatusSymlinkWithBackingFile(t *testing.T) {
	staged := filepath.Join(t.TempDir(), "staged.conf")
	content := []byte("staged content")
	require.NoError(t, os.WriteFile(staged, content, 0644))

	targetDir := t.TempDir()
	target := filepath.Join(targetDir, "app.conf")
	require.NoError(t, os.Symlink(staged, target))

	s := New(t.TempDir())
	entry := DeployEntry{
		Target:      target,
		Staged:      staged,
		ContentHash: hashutil.HashContent(content),
		Kind:        scanner.KindBase,
		Package:     "p",
	}

	status, err := s.CheckEntryStatus(entry)
	require.NoError(t, err)
	assert.True(t, status.Exists)
	assert.False(t, status.ContentModified)
}

func TestLoadLockedIsExclusive(t *testing.T) {
	dir := t.TempDir()

	first, err := LoadLocked(dir)
	require.NoError(t, err)

	_, err = LoadLocked(dir)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrStateLocked))

	require.NoError(t, first.Close())

	second, err := LoadLocked(dir)
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestCloseWithoutLockIsNoop(t *testing.T) {
	s := New(t.TempDir())
	assert.NoError(t, s.Close())
}
