// Package gitsource keeps local clones of deck repositories up to date.
package gitsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
)

// Sync clones a git repository if it doesn't exist at the given path,
// or pulls the latest changes if it does. progress may be nil.
func Sync(ctx context.Context, repoURL, localPath string, progress io.Writer, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	_, err := os.Stat(localPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Info("cloning repository", "url", repoURL, "path", localPath)
		if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
			return fmt.Errorf("failed to create parent of %s: %w", localPath, err)
		}
		_, err := git.PlainCloneContext(ctx, localPath, false, &git.CloneOptions{
			URL:      repoURL,
			Progress: progress,
		})
		if err != nil {
			return fmt.Errorf("failed to clone repo %s: %w", repoURL, err)
		}
		logger.Info("clone successful", "url", repoURL)

	case err == nil:
		logger.Info("pulling latest changes", "path", localPath)
		repo, err := git.PlainOpen(localPath)
		if err != nil {
			return fmt.Errorf("failed to open existing repo at %s: %w", localPath, err)
		}

		worktree, err := repo.Worktree()
		if err != nil {
			return fmt.Errorf("failed to get worktree for repo at %s: %w", localPath, err)
		}

		err = worktree.PullContext(ctx, &git.PullOptions{
			RemoteName: "origin",
			Progress:   progress,
		})
		if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			return fmt.Errorf("failed to pull changes for repo at %s: %w", localPath, err)
		}
		logger.Info("pull finished", "path", localPath, "up_to_date", err != nil)

	default:
		return fmt.Errorf("error checking path %s: %w", localPath, err)
	}

	return nil
}

// LocalPath maps a repository URL to its clone directory under baseDir,
// as <baseDir>/<host>/<path>. Both https and scp-like ssh URLs are accepted.
func LocalPath(baseDir, repoURL string) (string, error) {
	parsedURL, err := url.Parse(repoURL)
	if err != nil || (parsedURL.Scheme != "https" && parsedURL.Scheme != "http" && parsedURL.Scheme != "ssh") {
		// git@host:owner/repo.git
		if user, rest, ok := strings.Cut(repoURL, "@"); ok && user != "" {
			host, repoPath, ok := strings.Cut(rest, ":")
			if ok && host != "" && repoPath != "" && !strings.Contains(host, "/") {
				return cloneDir(baseDir, repoURL, host, repoPath)
			}
		}
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}
	if parsedURL.Host == "" {
		return "", fmt.Errorf("git URL has no host: %s", repoURL)
	}

	return cloneDir(baseDir, repoURL, parsedURL.Hostname(), parsedURL.Path)
}

// cloneDir joins host and repoPath under baseDir and refuses any result
// that is not strictly inside <baseDir>/<host>.
func cloneDir(baseDir, repoURL, host, repoPath string) (string, error) {
	if host == "" || host == "." || host == ".." || strings.ContainsAny(host, `/\`) {
		return "", fmt.Errorf("invalid host in git URL: %s", repoURL)
	}
	hostDir := filepath.Join(baseDir, host)
	dir := filepath.Join(hostDir, strings.TrimSuffix(repoPath, ".git"))
	rel, err := filepath.Rel(hostDir, dir)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("git URL path escapes the clone directory: %s", repoURL)
	}
	return dir, nil
}

// IsRemote reports whether path looks like a git URL rather than a directory.
func IsRemote(path string) bool {
	if strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "ssh://") {
		return true
	}
	user, rest, ok := strings.Cut(path, "@")
	return ok && user != "" && strings.Contains(rest, ":") && strings.HasSuffix(path, ".git")
}
