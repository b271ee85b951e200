package acceptance_test

import (
	"fmt"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("dura capture", func() {
	var tmpDir string
	var repoDir string
	var head string

	BeforeEach(func() {
		tmpDir, repoDir = setupTestRepo("dura-capture-*")
		head = runGitOutput(repoDir, "rev-parse", "HEAD")
	})

	AfterEach(func() {
		cleanupTestRepo(repoDir, tmpDir)
	})

	duraBranch := func() string { return "dura/" + head }

	It("snapshots an edited file onto the dura branch without touching HEAD", func() {
		writeFile(filepath.Join(repoDir, "hello.txt"), "hello, again\n")

		out := runDura(repoDir, "capture")
		Expect(out).NotTo(BeEmpty())

		branches := runGitOutput(repoDir, "branch", "--list", duraBranch())
		Expect(branches).To(ContainSubstring(duraBranch()))

		currentHead := runGitOutput(repoDir, "rev-parse", "HEAD")
		Expect(currentHead).To(Equal(head), "capture must never move HEAD")

		snapContent := runGitOutput(repoDir, "show", duraBranch()+":hello.txt")
		Expect(snapContent).To(Equal("hello, again"))
	})

	It("is a no-op when the working tree is clean", func() {
		out := runDura(repoDir, "capture")
		Expect(strings.TrimSpace(out)).To(BeEmpty())

		branches := runGitOutput(repoDir, "branch", "--list", duraBranch())
		Expect(branches).To(BeEmpty(), "no snapshot branch should be created for a clean tree")
	})

	It("is idempotent: a second capture with no further edits does not add a commit", func() {
		writeFile(filepath.Join(repoDir, "hello.txt"), "hello, again\n")
		runDura(repoDir, "capture")
		first := runGitOutput(repoDir, "rev-parse", duraBranch())

		runDura(repoDir, "capture")
		second := runGitOutput(repoDir, "rev-parse", duraBranch())

		Expect(second).To(Equal(first))
	})

	It("extends the chain on repeated edits", func() {
		writeFile(filepath.Join(repoDir, "hello.txt"), "edit one\n")
		runDura(repoDir, "capture")
		first := runGitOutput(repoDir, "rev-parse", duraBranch())

		writeFile(filepath.Join(repoDir, "hello.txt"), "edit two\n")
		runDura(repoDir, "capture")
		second := runGitOutput(repoDir, "rev-parse", duraBranch())

		Expect(second).NotTo(Equal(first))

		parent := runGitOutput(repoDir, "log", "-1", "--format=%P", duraBranch())
		Expect(parent).To(Equal(first))

		count := runGitOutput(repoDir, "rev-list", "--count", duraBranch(), fmt.Sprintf("^%s", head))
		Expect(count).To(Equal("2"))
	})

	It("leaves an in-progress merge conflict's index untouched", func() {
		// Diverge two branches on the same file so merging produces a conflict.
		runGit(repoDir, "checkout", "-q", "-b", "feature")
		writeFile(filepath.Join(repoDir, "hello.txt"), "feature branch change\n")
		runGit(repoDir, "commit", "-q", "-am", "feature change")

		runGit(repoDir, "checkout", "-q", "main")
		writeFile(filepath.Join(repoDir, "hello.txt"), "main branch change\n")
		runGit(repoDir, "commit", "-q", "-am", "main change")

		runGitAllowError(repoDir, "merge", "feature") // expected to fail with a conflict

		statusBefore := runGitOutput(repoDir, "status", "--porcelain")
		Expect(statusBefore).To(ContainSubstring("UU hello.txt"))

		// capture against a repo with unresolved conflicts reports the tree
		// as dirty but must not disturb the real index or working tree.
		runDuraAllowError(repoDir, "capture")

		statusAfter := runGitOutput(repoDir, "status", "--porcelain")
		Expect(statusAfter).To(Equal(statusBefore), "capture must never mutate the real index during a conflict")
	})
})
