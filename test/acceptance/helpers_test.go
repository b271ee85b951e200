package acceptance_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	. "github.com/onsi/gomega"
)

// setupTestRepo creates a fresh temp dir with an initialized, single-commit
// git repository at <tmp>/repo, and returns (tmpDir, repoDir).
func setupTestRepo(pattern string) (string, string) {
	tmpDir, err := os.MkdirTemp("", pattern)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())

	repoDir := filepath.Join(tmpDir, "repo")
	Expect(os.MkdirAll(repoDir, 0o755)).To(Succeed())
	runGit(repoDir, "init", "-q")
	runGit(repoDir, "checkout", "-q", "-b", "main")
	writeFile(filepath.Join(repoDir, "hello.txt"), "hello\n")
	runGit(repoDir, "add", "hello.txt")
	runGit(repoDir, "commit", "-q", "-m", "initial commit")

	return tmpDir, repoDir
}

func runGit(dir string, args ...string) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=Test",
		"GIT_AUTHOR_EMAIL=test@test.com",
		"GIT_COMMITTER_NAME=Test",
		"GIT_COMMITTER_EMAIL=test@test.com",
	)
	out, err := cmd.CombinedOutput()
	ExpectWithOffset(1, err).NotTo(HaveOccurred(), "git %v: %s", args, string(out))
}

func runGitOutput(dir string, args ...string) string {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	ExpectWithOffset(1, err).NotTo(HaveOccurred(), "git %v: %s", args, string(out))
	return strings.TrimSpace(string(out))
}

func writeFile(path, content string) {
	dir := filepath.Dir(path)
	err := os.MkdirAll(dir, 0o755)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	err = os.WriteFile(path, []byte(content), 0o644)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
}

// runGitAllowError runs git and ignores a non-zero exit, for commands like
// a conflicting merge that are expected to fail while still mutating the
// working tree and index.
func runGitAllowError(dir string, args ...string) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=Test",
		"GIT_AUTHOR_EMAIL=test@test.com",
		"GIT_COMMITTER_NAME=Test",
		"GIT_COMMITTER_EMAIL=test@test.com",
	)
	_ = cmd.Run()
}

// runDuraAllowError runs the dura binary and ignores a non-zero exit.
func runDuraAllowError(dir string, args ...string) string {
	cmd := exec.Command(binaryPath, args...)
	cmd.Dir = dir
	out, _ := cmd.CombinedOutput()
	return strings.TrimSpace(string(out))
}

// runDura runs the dura binary with args in dir and returns combined output.
// It fails the test if the command exits non-zero.
func runDura(dir string, args ...string) string {
	cmd := exec.Command(binaryPath, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=Test",
		"GIT_AUTHOR_EMAIL=test@test.com",
		"GIT_COMMITTER_NAME=Test",
		"GIT_COMMITTER_EMAIL=test@test.com",
	)
	out, err := cmd.CombinedOutput()
	ExpectWithOffset(1, err).NotTo(HaveOccurred(), "dura %v: %s", args, string(out))
	return strings.TrimSpace(string(out))
}
