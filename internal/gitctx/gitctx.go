// Package gitctx derives the project identity recorded in reports from the
// git repository a scan runs in.
package gitctx

import (
	"os/exec"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
)

// RepoInfo identifies the scanned project.
type RepoInfo struct {
	Name   string `json:"name"`
	Root   string `json:"root,omitempty"`
	Remote string `json:"remote,omitempty"`
	Branch string `json:"branch,omitempty"`
	GitSHA string `json:"git_sha,omitempty"`
}

// Describe returns repository information for target. Outside a git
// repository only Name (the directory name) is set.
func Describe(target string) *RepoInfo {
	abs, err := filepath.Abs(target)
	if err != nil {
		abs = target
	}
	info := &RepoInfo{Name: filepath.Base(abs)}

	if describeGoGit(abs, info) {
		return info
	}
	if _, err := exec.LookPath("git"); err == nil && isRepoCLI(abs) {
		info.Root = runGit(abs, "rev-parse", "--show-toplevel")
		info.Remote = runGit(abs, "config", "--get", "remote.origin.url")
		info.Branch = runGit(abs, "rev-parse", "--abbrev-ref", "HEAD")
		info.GitSHA = runGit(abs, "rev-parse", "HEAD")
		applyRemoteName(info)
	}
	return info
}

func describeGoGit(target string, info *RepoInfo) bool {
	repo, err := git.PlainOpenWithOptions(target, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return false
	}
	if wt, err := repo.Worktree(); err == nil {
		info.Root = wt.Filesystem.Root()
	}
	if head, err := repo.Head(); err == nil {
		info.Branch = head.Name().Short()
		info.GitSHA = head.Hash().String()
	}
	if remote, err := repo.Remote("origin"); err == nil {
		if urls := remote.Config().URLs; len(urls) > 0 {
			info.Remote = urls[0]
		}
	}
	applyRemoteName(info)
	return true
}

func applyRemoteName(info *RepoInfo) {
	if name := NameFromRemote(info.Remote); name != "" {
		info.Name = name
	}
}

// NameFromRemote extracts the repository name from a remote URL, e.g.
// "git@github.com:acme/shop.git" gives "shop".
func NameFromRemote(remote string) string {
	r := strings.TrimSpace(remote)
	r = strings.TrimRight(r, "/")
	r = strings.TrimSuffix(r, ".git")
	if r == "" {
		return ""
	}
	if i := strings.LastIndexAny(r, "/:"); i >= 0 {
		r = r[i+1:]
	}
	return r
}

func isRepoCLI(target string) bool {
	return runGit(target, "rev-parse", "--is-inside-work-tree") == "true"
}

func runGit(dir string, args ...string) string {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, _ := cmd.Output()
	return strings.TrimSpace(string(out))
}
