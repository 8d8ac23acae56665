package backup

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// newGitClone creates a bare remote with one commit on main and returns the
// path to a working clone of it.
func newGitClone(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not found in PATH")
	}

	remoteDir := t.TempDir()
	run(t, remoteDir, "git", "init", "--bare")

	workDir := t.TempDir()
	run(t, workDir, "git", "clone", remoteDir, "repo")
	repoDir := filepath.Join(workDir, "repo")

	run(t, repoDir, "git", "config", "user.email", "backup@example.com")
	run(t, repoDir, "git", "config", "user.name", "Backup")
	run(t, repoDir, "git", "checkout", "-b", "main")
	if err := os.WriteFile(filepath.Join(repoDir, ".gitkeep"), nil, 0o644); err != nil {
		t.Fatalf("write .gitkeep: %v", err)
	}
	run(t, repoDir, "git", "add", ".")
	run(t, repoDir, "git", "commit", "-m", "init")
	run(t, repoDir, "git", "push", "origin", "main")
	return repoDir
}

func commitCount(t *testing.T, repo string) int {
	t.Helper()
	out, err := exec.Command("git", "-C", repo, "rev-list", "--count", "HEAD").Output()
	if err != nil {
		t.Fatalf("rev-list: %v", err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		t.Fatalf("parse commit count: %v", err)
	}
	return n
}

func TestGitDestination(t *testing.T) {
	for _, file := range []string{"shop.jsonl", "exports/shop.jsonl"} {
		t.Run(file, func(t *testing.T) {
			repo := newGitClone(t)
			dest := NewGitDestination(repo, file, "main")

			first := []byte(`{"version":"1","type":"header","record_count":0}` + "\n")
			second := []byte(`{"version":"1","type":"header","record_count":1}` + "\n")

			for i, step := range []struct {
				data        []byte
				wantCommits int
			}{
				{first, 2},
				{first, 2}, // unchanged data: no commit
				{second, 3},
			} {
				if err := dest.Write(context.Background(), step.data); err != nil {
					t.Fatalf("write %d: %v", i, err)
				}
				got, err := os.ReadFile(filepath.Join(repo, file))
				if err != nil {
					t.Fatalf("read file: %v", err)
				}
				if string(got) != string(step.data) {
					t.Fatalf("write %d: content mismatch: got %q", i, got)
				}
				if n := commitCount(t, repo); n != step.wantCommits {
					t.Fatalf("write %d: expected %d commits, got %d", i, step.wantCommits, n)
				}
			}
		})
	}
}

func run(t *testing.T, dir string, name string, args ...string) {
	t.Helper()
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		t.Fatalf("%s %v failed: %v", name, args, err)
	}
}

func TestGitDestination_CommitMessage(t *testing.T) {
	repo := newGitClone(t)
	dest := NewGitDestination(repo, "shop.jsonl", "main")

	data := []byte(`{"version":"1","type":"header","collections":["orders","users"],"record_count":7}` + "\n")
	if err := dest.Write(context.Background(), data); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out, err := exec.Command("git", "-C", repo, "log", "-1", "--format=%s").Output()
	if err != nil {
		t.Fatalf("git log: %v", err)
	}
	if got := strings.TrimSpace(string(out)); got != "backup: 7 records in 2 collections" {
		t.Fatalf("commit message = %q", got)
	}
}

func TestGitDestination_MissingRepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not found in PATH")
	}
	dest := NewGitDestination(filepath.Join(t.TempDir(), "missing"), "shop.jsonl", "main")
	if err := dest.Write(context.Background(), []byte("{}\n")); err == nil {
		t.Fatal("expected an error for a missing clone")
	}
}
