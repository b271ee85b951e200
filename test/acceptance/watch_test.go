package acceptance_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("dura watch / unwatch", func() {
	var tmpDir string
	var repoDir string
	var configHome string

	BeforeEach(func() {
		tmpDir, repoDir = setupTestRepo("dura-watch-*")
		configHome = filepath.Join(tmpDir, "config-home")
		Expect(os.MkdirAll(configHome, 0o755)).To(Succeed())
	})

	AfterEach(func() {
		cleanupTestRepo(repoDir, tmpDir)
	})

	runDuraIsolated := func(args ...string) string {
		cmd := exec.Command(binaryPath, args...)
		cmd.Dir = repoDir
		cmd.Env = append(os.Environ(), "DURA_CONFIG_HOME="+configHome)
		out, err := cmd.CombinedOutput()
		ExpectWithOffset(1, err).NotTo(HaveOccurred(), "dura %v: %s", args, string(out))
		return strings.TrimSpace(string(out))
	}

	It("adds a watch entry that round-trips through config.toml", func() {
		out := runDuraIsolated("watch", repoDir, "-e", "vendor", "-i", "vendor/keep", "-d", "3")
		Expect(out).To(ContainSubstring("watching"))

		raw, err := os.ReadFile(filepath.Join(configHome, "config.toml"))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(raw)).To(ContainSubstring("vendor"))
		Expect(string(raw)).To(ContainSubstring("vendor/keep"))
		Expect(string(raw)).To(ContainSubstring("max_depth = 3"))
	})

	It("removes a watch entry with unwatch", func() {
		runDuraIsolated("watch", repoDir)
		out := runDuraIsolated("unwatch", repoDir)
		Expect(out).To(ContainSubstring("stopped watching"))

		raw, err := os.ReadFile(filepath.Join(configHome, "config.toml"))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(raw)).NotTo(ContainSubstring(repoDir))
	})

	It("reports when unwatching a directory that was never watched", func() {
		out := runDuraIsolated("unwatch", repoDir)
		Expect(out).To(ContainSubstring("was not watched"))
	})
})

var _ = Describe("dura kill", func() {
	var tmpDir, cacheHome string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "dura-kill-*")
		Expect(err).NotTo(HaveOccurred())
		cacheHome = filepath.Join(tmpDir, "cache-home")
		Expect(os.MkdirAll(cacheHome, 0o755)).To(Succeed())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("succeeds even when no daemon currently holds the lock", func() {
		cmd := exec.Command(binaryPath, "kill")
		cmd.Dir = tmpDir
		cmd.Env = append(os.Environ(), "DURA_CACHE_HOME="+cacheHome)
		out, err := cmd.CombinedOutput()
		Expect(err).NotTo(HaveOccurred(), "output: %s", string(out))
		Expect(string(out)).To(ContainSubstring("runtime lock cleared"))
	})
})

var _ = Describe("dura version", func() {
	It("prints a version string", func() {
		cmd := exec.Command(binaryPath, "version")
		out, err := cmd.CombinedOutput()
		Expect(err).NotTo(HaveOccurred(), "output: %s", string(out))
		Expect(strings.TrimSpace(string(out))).NotTo(BeEmpty())
	})
})
