package entities

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

const (
	HostingGitHub      = "github"
	HostingGitLab      = "gitlab"
	HostingAzureDevOps = "azuredevops"
)

// HostingInfo holds the parsed components of a remote URL.
type HostingInfo struct {
	Type     string
	Domain   string
	Org      string
	Project  string // Azure DevOps only
	RepoName string
}

// FullName is the owner-qualified repository name on the hosting service.
func (h HostingInfo) FullName() string {
	if h.Project != "" {
		return h.Org + "/" + h.Project + "/" + h.RepoName
	}
	return h.Org + "/" + h.RepoName
}

// Remote is a configured remote of a repository.
type Remote struct {
	Name     string
	FetchURL string
	PushURL  string
	// Default marks the remote the user configured as preferred.
	Default bool
	Hosting *HostingInfo
}

// URL is the fetch URL, falling back to the push URL.
func (r Remote) URL() string {
	if r.FetchURL != "" {
		return r.FetchURL
	}
	return r.PushURL
}

// RankedRemote is a remote with its computed weight.
type RankedRemote struct {
	Remote
	Weight int
}

// NewRemote builds a Remote and parses its hosting information when the URL is recognised.
func NewRemote(name, fetchURL, pushURL string) Remote {
	remote := Remote{Name: name, FetchURL: fetchURL, PushURL: pushURL}
	if info, err := ParseRemoteURL(remote.URL()); err == nil {
		remote.Hosting = info
	}
	return remote
}

// RemoteIdentity hashes what identifies the hosted repository behind a remote, so the same
// repository reached over SSH and HTTPS hashes the same.
func RemoteIdentity(remote Remote) string {
	var identity string
	if remote.Hosting != nil {
		identity = strings.ToLower(remote.Hosting.Type + ":" + remote.Hosting.Domain + "/" + remote.Hosting.FullName())
	} else {
		identity = strings.ToLower(strings.TrimSuffix(remote.URL(), ".git"))
	}
	sum := sha256.Sum256([]byte(identity))
	return hex.EncodeToString(sum[:])
}

// RemotesFingerprint hashes the identities of every remote, independent of their order.
func RemotesFingerprint(remotes []Remote) string {
	if len(remotes) == 0 {
		return ""
	}
	identities := make([]string, 0, len(remotes))
	for _, remote := range remotes {
		identities = append(identities, RemoteIdentity(remote))
	}
	sort.Strings(identities)
	sum := sha256.Sum256([]byte(strings.Join(identities, ";")))
	return hex.EncodeToString(sum[:])
}

// ParseRemoteURL extracts the hosting type, org, project and repository name from a Git remote URL.
func ParseRemoteURL(rawURL string) (*HostingInfo, error) {
	cleaned := strings.TrimSuffix(strings.TrimSpace(rawURL), "/")
	cleaned = strings.TrimSuffix(cleaned, ".git")

	if strings.Contains(cleaned, "dev.azure.com") || strings.Contains(cleaned, "visualstudio.com") {
		return parseAzureDevOpsURL(cleaned)
	}

	if strings.Contains(cleaned, "github.com") {
		org, repo, err := parseStandardGitURL(cleaned, "github.com")
		if err != nil {
			return nil, err
		}
		return &HostingInfo{Type: HostingGitHub, Domain: "github.com", Org: org, RepoName: repo}, nil
	}

	if strings.Contains(cleaned, "gitlab.com") {
		org, repo, err := parseStandardGitURL(cleaned, "gitlab.com")
		if err != nil {
			return nil, err
		}
		return &HostingInfo{Type: HostingGitLab, Domain: "gitlab.com", Org: org, RepoName: repo}, nil
	}

	return nil, fmt.Errorf("unsupported git remote URL: %s", rawURL)
}

func parseAzureDevOpsURL(url string) (*HostingInfo, error) {
	if strings.HasPrefix(url, "git@") && strings.Contains(url, ":v3/") {
		_, after, _ := strings.Cut(url, ":v3/")
		parts := strings.Split(after, "/")
		if len(parts) >= 3 { //nolint:mnd // org/project/repo
			return &HostingInfo{
				Type:     HostingAzureDevOps,
				Domain:   "dev.azure.com",
				Org:      parts[0],
				Project:  parts[1],
				RepoName: parts[2],
			}, nil
		}
		return nil, fmt.Errorf("invalid Azure DevOps SSH URL: %s", url)
	}

	parts := strings.Split(url, "/")
	for i, p := range parts {
		if p == "_git" && i+1 < len(parts) && i >= 2 {
			org := parts[i-2]
			if host, _, ok := strings.Cut(org, ".visualstudio.com"); ok {
				org = host
			}
			// https://user@dev.azure.com/org/project/_git/repo keeps the user before the host
			if strings.Contains(org, "@") {
				_, org, _ = strings.Cut(org, "@")
			}
			return &HostingInfo{
				Type:     HostingAzureDevOps,
				Domain:   "dev.azure.com",
				Org:      org,
				Project:  parts[i-1],
				RepoName: parts[i+1],
			}, nil
		}
	}

	return nil, fmt.Errorf("invalid Azure DevOps URL: %s", url)
}

func parseStandardGitURL(url, hostname string) (string, string, error) {
	var pathPart string

	if strings.HasPrefix(url, "git@") {
		parts := strings.SplitN(url, ":", 2) //nolint:mnd // host:path
		if len(parts) < 2 {                  //nolint:mnd // need both parts
			return "", "", fmt.Errorf("invalid SSH URL: %s", url)
		}
		pathPart = parts[1]
	} else {
		_, after, ok := strings.Cut(url, hostname)
		if !ok {
			return "", "", fmt.Errorf("hostname %s not found in URL: %s", hostname, url)
		}
		pathPart = strings.TrimPrefix(strings.TrimPrefix(after, ":"), "/")
	}

	segments := strings.Split(pathPart, "/")
	if len(segments) < 2 || segments[0] == "" || segments[1] == "" { //nolint:mnd // need org + repo
		return "", "", fmt.Errorf("cannot extract org/repo from URL: %s", url)
	}

	// nested GitLab groups keep every segment but the last as the owner
	return strings.Join(segments[:len(segments)-1], "/"), segments[len(segments)-1], nil
}
