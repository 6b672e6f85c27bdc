package github

// Repository GitHub 仓库元数据，只保留用到的字段
type Repository struct {
	Name            string   `json:"name"`
	FullName        string   `json:"full_name"`
	Description     string   `json:"description"`
	Language        string   `json:"language"`
	Topics          []string `json:"topics"`
	License         *License `json:"license"`
	StargazersCount int      `json:"stargazers_count"`
	ForksCount      int      `json:"forks_count"`
	HTMLURL         string   `json:"html_url"`
	DefaultBranch   string   `json:"default_branch"`
	Owner           struct {
		Login string `json:"login"`
	} `json:"owner"`
}

type License struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// ContentEntry contents 接口返回的目录项
type ContentEntry struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Type     string `json:"type"` // file, dir, symlink, submodule
	Size     int64  `json:"size"`
	Content  string `json:"content,omitempty"`
	Encoding string `json:"encoding,omitempty"`
}

// TreeEntry 一级目录结构
type TreeEntry struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func (e TreeEntry) IsDir() bool {
	return e.Type == "dir"
}
