package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type saveGame struct {
	Name  string   `json:"name" yaml:"name"`
	Level int      `json:"level" yaml:"level"`
	Items []string `json:"items" yaml:"items,omitempty"`
}

type logEntry struct {
	level string
	msg   string
}

// recordingLogger keeps every message so tests can assert on reports.
type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (r *recordingLogger) add(level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, logEntry{level: level, msg: msg})
}

func (r *recordingLogger) Debug(msg string, _ ...any) { r.add("debug", msg) }
func (r *recordingLogger) Info(msg string, _ ...any)  { r.add("info", msg) }
func (r *recordingLogger) Warn(msg string, _ ...any)  { r.add("warn", msg) }
func (r *recordingLogger) Error(msg string, _ ...any) { r.add("error", msg) }

func (r *recordingLogger) count(level string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if e.level == level {
			n++
		}
	}
	return n
}

// undecodableCodec writes valid JSON but never reads anything back.
type undecodableCodec struct{ JSONCodec }

func (undecodableCodec) Decode([]byte, any) error { return errors.New("decoder broken") }

func newTestStore(t *testing.T, opts ...Option) (*Store[saveGame], string) {
	t.Helper()
	dir := t.TempDir()
	s, err := New[saveGame](Config{DataDir: dir, FileName: "data", FileExtension: ".json"}, opts...)
	require.NoError(t, err)
	return s, dir
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return b
}

func TestNew_Config(t *testing.T) {
	_, err := New[saveGame](Config{FileName: "data"})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New[saveGame](Config{DataDir: t.TempDir()})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	s, err := New[saveGame](Config{DataDir: "root", FileName: "data", FileExtension: ".json"})
	require.NoError(t, err)
	assert.Equal(t, ".bak", s.Config().BackupExtension)
	assert.Equal(t, []byte(DefaultObfuscationKey), s.Config().ObfuscationKey)
}

func TestPathToFile(t *testing.T) {
	s, err := New[saveGame](Config{DataDir: "root", FileName: "data", FileExtension: ".json", BackupExtension: ".old"})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("root", "slot1", "settings.json"), s.PathToFile("slot1", "settings"))
	assert.Equal(t, filepath.Join("root", "slot1", "data.json"), s.ProfilePath("slot1"))
	assert.Equal(t, filepath.Join("root", "slot1", "data.json.old"), s.BackupPath(s.ProfilePath("slot1")))
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	for _, obfuscated := range []bool{false, true} {
		t.Run(fmt.Sprintf("obfuscated=%v", obfuscated), func(t *testing.T) {
			s, _ := newTestStore(t)
			want := saveGame{Name: "Alice", Level: 7, Items: []string{"sword", "lantern"}}

			require.NoError(t, s.Save("slot1", want, obfuscated))

			got, err := s.Load("slot1", obfuscated)
			require.NoError(t, err)
			assert.Equal(t, want, got)

			primary := readFile(t, s.ProfilePath("slot1"))
			assert.Equal(t, primary, readFile(t, s.BackupPath(s.ProfilePath("slot1"))))
			if obfuscated {
				assert.NotContains(t, string(primary), "Alice")
			} else {
				assert.Contains(t, string(primary), "\n  \"name\": \"Alice\"")
			}
		})
	}
}

func TestSaveLoad_YAMLCodec(t *testing.T) {
	s, _ := newTestStore(t, WithCodec(YAMLCodec{}))
	want := saveGame{Name: "Bob", Level: 2}

	require.NoError(t, s.Save("slot1", want, true))
	got, err := s.Load("slot1", true)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	plain := Obfuscate(readFile(t, s.ProfilePath("slot1")), s.Config().ObfuscationKey)
	assert.Contains(t, string(plain), "name: Bob")
}

func TestLoad_WrongObfuscationFlagFails(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Save("slot1", saveGame{Name: "Alice"}, true))

	_, err := s.LoadStrict("slot1", false)
	assert.ErrorIs(t, err, ErrDeserialize)
}

func TestObfuscate(t *testing.T) {
	key := []byte(DefaultObfuscationKey)
	texts := []string{"", "a", `{"name":"Alice"}`, string(make([]byte, 3*len(key)+5)), "héllo wörld"}

	for _, text := range texts {
		once := Obfuscate([]byte(text), key)
		assert.Len(t, once, len(text))
		assert.Equal(t, text, string(Obfuscate(once, key)))
	}

	assert.Empty(t, Obfuscate(nil, key))
	assert.Equal(t, []byte("plain"), Obfuscate([]byte("plain"), nil))
	assert.Equal(t, []byte{'a' ^ 'k', 'b' ^ 'k'}, Obfuscate([]byte("ab"), []byte("k")))
}

func TestAbsentProfileID_NoOp(t *testing.T) {
	s, dir := newTestStore(t)

	_, err := s.Load("", false)
	assert.ErrorIs(t, err, ErrNoProfileID)
	assert.ErrorIs(t, s.Save("", saveGame{Name: "x"}, false), ErrNoProfileID)
	assert.NoError(t, s.Delete(""))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestInvalidProfileID(t *testing.T) {
	s, _ := newTestStore(t)

	ids := []string{".", "..", "a/b"}
	if filepath.Separator == '\\' {
		ids = append(ids, `a\b`)
	}
	for _, id := range ids {
		assert.ErrorIs(t, s.Save(id, saveGame{}, false), ErrInvalidProfileID, id)
		_, err := s.Load(id, false)
		assert.ErrorIs(t, err, ErrInvalidProfileID, id)
		assert.ErrorIs(t, s.Delete(id), ErrInvalidProfileID, id)
		assert.False(t, s.Exists(id))
	}
}

func TestLoad_MissingProfile(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Load("nobody", false)
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestSave_VerificationFailureLeavesBackup(t *testing.T) {
	good, dir := newTestStore(t)
	require.NoError(t, good.Save("slot1", saveGame{Name: "v1"}, false))

	backupPath := good.BackupPath(good.ProfilePath("slot1"))
	before := readFile(t, backupPath)

	log := &recordingLogger{}
	bad, err := New[saveGame](Config{DataDir: dir, FileName: "data", FileExtension: ".json"},
		WithCodec(undecodableCodec{}), WithLogger(log))
	require.NoError(t, err)

	err = bad.Save("slot1", saveGame{Name: "v2"}, false)
	assert.ErrorIs(t, err, ErrVerification)
	assert.ErrorIs(t, err, ErrDeserialize)
	assert.Positive(t, log.count("error"))

	assert.Equal(t, before, readFile(t, backupPath))
	// The unverified write stays in the primary file.
	assert.Contains(t, string(readFile(t, good.ProfilePath("slot1"))), "v2")
}

func TestSave_VerificationFailureWithoutPriorBackup(t *testing.T) {
	s, _ := newTestStore(t, WithCodec(undecodableCodec{}))

	err := s.Save("slot1", saveGame{Name: "v1"}, true)
	assert.ErrorIs(t, err, ErrVerification)
	assert.False(t, s.HasBackup("slot1"))
	assert.True(t, s.Exists("slot1"))
}

func TestSave_WriteFailureLeavesBackup(t *testing.T) {
	s, dir := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "slot1", "data.json"), 0o755))

	err := s.Save("slot1", saveGame{Name: "v1"}, false)
	assert.ErrorIs(t, err, ErrIO)
	assert.False(t, s.HasBackup("slot1"))
}

func TestLoad_RollbackRecovery(t *testing.T) {
	for _, obfuscated := range []bool{false, true} {
		t.Run(fmt.Sprintf("obfuscated=%v", obfuscated), func(t *testing.T) {
			log := &recordingLogger{}
			s, _ := newTestStore(t, WithLogger(log))
			want := saveGame{Name: "backed-up", Level: 3}
			require.NoError(t, s.Save("slot1", want, obfuscated))

			primary := s.ProfilePath("slot1")
			require.NoError(t, os.WriteFile(primary, []byte(`{"name": "trunc`), 0o644))

			_, err := s.LoadStrict("slot1", obfuscated)
			assert.ErrorIs(t, err, ErrDeserialize)

			got, err := s.Load("slot1", obfuscated)
			require.NoError(t, err)
			assert.Equal(t, want, got)
			assert.Equal(t, readFile(t, s.BackupPath(primary)), readFile(t, primary))
			assert.Positive(t, log.count("warn"))
		})
	}
}

func TestLoad_CorruptWithoutBackup(t *testing.T) {
	s, dir := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "slot1"), 0o755))
	require.NoError(t, os.WriteFile(s.ProfilePath("slot1"), []byte("not json"), 0o644))

	_, err := s.Load("slot1", false)
	assert.ErrorIs(t, err, ErrDeserialize)
	assert.ErrorIs(t, err, ErrBackupUnavailable)
}

func TestLoad_CorruptBackupDoesNotLoop(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Save("slot1", saveGame{Name: "v1"}, false))

	primary := s.ProfilePath("slot1")
	require.NoError(t, os.WriteFile(primary, []byte("garbage"), 0o644))
	require.NoError(t, os.WriteFile(s.BackupPath(primary), []byte("also garbage"), 0o644))

	_, err := s.Load("slot1", false)
	assert.ErrorIs(t, err, ErrDeserialize)
	assert.NotErrorIs(t, err, ErrBackupUnavailable)
}

func TestLoad_TruncatedYAMLRollsBack(t *testing.T) {
	for _, obfuscated := range []bool{false, true} {
		t.Run(fmt.Sprintf("obfuscated=%v", obfuscated), func(t *testing.T) {
			s, _ := newTestStore(t, WithCodec(YAMLCodec{}))
			want := saveGame{Name: "Bobby", Level: 2, Items: []string{"sword", "shield"}}
			require.NoError(t, s.Save("slot1", want, obfuscated))

			primary := s.ProfilePath("slot1")
			full := readFile(t, primary)
			require.NoError(t, os.WriteFile(primary, full[:len(full)-10], 0o644))

			_, err := s.LoadStrict("slot1", obfuscated)
			assert.ErrorIs(t, err, ErrDeserialize)

			got, err := s.Load("slot1", obfuscated)
			require.NoError(t, err)
			assert.Equal(t, want, got)
			assert.Equal(t, full, readFile(t, primary))
		})
	}
}

func TestLoad_NullDocumentRollsBack(t *testing.T) {
	cases := map[string]struct {
		codec Codec
		null  string
	}{
		"json":       {JSONCodec{}, "null"},
		"yaml":       {YAMLCodec{}, "null\n...\n"},
		"yaml empty": {YAMLCodec{}, "...\n"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			s, _ := newTestStore(t, WithCodec(tc.codec))
			want := saveGame{Name: "kept", Level: 4}
			require.NoError(t, s.Save("slot1", want, false))
			require.NoError(t, os.WriteFile(s.ProfilePath("slot1"), []byte(tc.null), 0o644))

			_, err := s.LoadStrict("slot1", false)
			assert.ErrorIs(t, err, ErrDeserialize)

			got, err := s.Load("slot1", false)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestYAMLCodec_EndMarker(t *testing.T) {
	out, err := YAMLCodec{}.Encode(saveGame{Name: "x", Items: []string{"a"}})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(out), "\n...\n"))

	var got saveGame
	require.NoError(t, YAMLCodec{}.Decode(out, &got))
	assert.Equal(t, "x", got.Name)

	assert.Error(t, YAMLCodec{}.Decode([]byte("name: x\nlevel: 1\n"), &got))
}

func TestEnumerate_BackslashDirectory(t *testing.T) {
	if filepath.Separator == '\\' {
		t.Skip("backslash is a path separator here")
	}
	s, _ := newTestStore(t)
	want := saveGame{Name: "odd"}
	require.NoError(t, s.Save(`a\b`, want, false))

	profiles, err := s.Enumerate(false)
	require.NoError(t, err)
	assert.Equal(t, map[string]saveGame{`a\b`: want}, profiles)
}

func TestEnumerate_Completeness(t *testing.T) {
	log := &recordingLogger{}
	s, dir := newTestStore(t, WithLogger(log))
	valid := saveGame{Name: "A", Level: 1}
	require.NoError(t, s.Save("A", valid, true))

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "B"), 0o755))
	require.NoError(t, os.WriteFile(s.ProfilePath("B"), []byte("corrupt"), 0o644))

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "C"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stray.txt"), []byte("x"), 0o644))

	profiles, err := s.Enumerate(true)
	require.NoError(t, err)
	assert.Equal(t, map[string]saveGame{"A": valid}, profiles)
	assert.Positive(t, log.count("warn"))
	assert.Positive(t, log.count("error"))

	ids, err := s.ProfileIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, ids)
}

func TestEnumerate_MissingRoot(t *testing.T) {
	log := &recordingLogger{}
	s, err := New[saveGame](Config{DataDir: filepath.Join(t.TempDir(), "missing"), FileName: "data"}, WithLogger(log))
	require.NoError(t, err)

	profiles, err := s.Enumerate(false)
	require.NoError(t, err)
	assert.Empty(t, profiles)
	assert.Equal(t, 1, log.count("warn"))
}

func TestDelete_Idempotent(t *testing.T) {
	log := &recordingLogger{}
	s, dir := newTestStore(t, WithLogger(log))
	require.NoError(t, s.Save("slot1", saveGame{Name: "x"}, false))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "slot1", "thumbnail.png"), []byte{1}, 0o644))

	require.NoError(t, s.Delete("slot1"))
	_, err := os.Stat(filepath.Join(dir, "slot1"))
	assert.True(t, os.IsNotExist(err))
	assert.Zero(t, log.count("warn"))

	require.NoError(t, s.Delete("slot1"))
	assert.Equal(t, 1, log.count("warn"))
}

func TestDelete_KeepsDirectoryWithoutPrimary(t *testing.T) {
	s, dir := newTestStore(t)
	other := filepath.Join(dir, "slot1", "notes.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(other), 0o755))
	require.NoError(t, os.WriteFile(other, []byte("keep"), 0o644))

	require.NoError(t, s.Delete("slot1"))
	assert.FileExists(t, other)
}

func TestRestore(t *testing.T) {
	s, _ := newTestStore(t)
	assert.ErrorIs(t, s.Restore("slot1"), ErrBackupUnavailable)

	require.NoError(t, s.Save("slot1", saveGame{Name: "v1"}, false))
	require.NoError(t, os.Remove(s.ProfilePath("slot1")))
	assert.False(t, s.Exists("slot1"))
	assert.True(t, s.HasBackup("slot1"))

	require.NoError(t, s.Restore("slot1"))
	got, err := s.Load("slot1", false)
	require.NoError(t, err)
	assert.Equal(t, "v1", got.Name)
}

func TestMigrate_PlainToObfuscatedYAML(t *testing.T) {
	src, _ := newTestStore(t)
	require.NoError(t, src.Save("p1", saveGame{Name: "one"}, false))
	require.NoError(t, src.Save("p2", saveGame{Name: "two", Items: []string{"map"}}, false))

	dst, err := New[saveGame](Config{DataDir: t.TempDir(), FileName: "save", FileExtension: ".yaml",
		ObfuscationKey: []byte("k3y")}, WithCodec(YAMLCodec{}))
	require.NoError(t, err)

	require.NoError(t, Migrate(src, dst, false, true))

	all, err := dst.Enumerate(true)
	require.NoError(t, err)
	assert.Equal(t, map[string]saveGame{
		"p1": {Name: "one"},
		"p2": {Name: "two", Items: []string{"map"}},
	}, all)
}

func TestCodecByName(t *testing.T) {
	c, err := CodecByName("")
	require.NoError(t, err)
	assert.Equal(t, "json", c.Name())

	c, err = CodecByName("YAML")
	require.NoError(t, err)
	assert.Equal(t, "yaml", c.Name())

	_, err = CodecByName("xml")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
