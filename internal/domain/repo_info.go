package domain

// RepoInfo 仓库的公开身份信息，流式输出中作为 info 事件下发
type RepoInfo struct {
	Name        string `json:"name"`
	Owner       string `json:"owner"`
	Description string `json:"description"`
	Language    string `json:"language"`
	Stars       int    `json:"stars"`
	Forks       int    `json:"forks"`
	URL         string `json:"url"`
}
