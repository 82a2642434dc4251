package github

import (
	"regexp"
	"strings"

	"github-repo-analyzer/internal/common"
	"github-repo-analyzer/internal/domain"
)

// InvalidURLMessage 是 URL 无法解析时返回给用户的提示
const InvalidURLMessage = "Invalid GitHub URL. Expected format: https://github.com/owner/repo"

var repoURLPatterns = []*regexp.Regexp{
	// https://github.com/owner/repo[/...][?...][#...]
	regexp.MustCompile(`github\.com/([^/]+)/([^/?#]+)`),
	// git@github.com:owner/repo.git
	regexp.MustCompile(`git@github\.com:([^/]+)/(.+?)(?:\.git)?$`),
}

// ParseRepoURL 从 https 或 ssh 形式的仓库地址中取出 owner/repo
func ParseRepoURL(raw string) (domain.RepoRef, error) {
	clean := strings.TrimSpace(raw)

	for _, pattern := range repoURLPatterns {
		match := pattern.FindStringSubmatch(clean)
		if match == nil {
			continue
		}
		owner := match[1]
		name := strings.TrimSuffix(match[2], ".git")
		if owner == "" || name == "" {
			break
		}
		return domain.RepoRef{
			Owner: owner,
			Name:  name,
			URL:   "https://github.com/" + owner + "/" + name,
		}, nil
	}

	return domain.RepoRef{}, common.NewError(common.ErrCodeInvalidURL, InvalidURLMessage)
}

// RefFor 直接由 owner/repo 构造引用 (HTTP 路由和 debug 工具使用)
func RefFor(owner, name string) domain.RepoRef {
	return domain.RepoRef{
		Owner: owner,
		Name:  name,
		URL:   "https://github.com/" + owner + "/" + name,
	}
}
