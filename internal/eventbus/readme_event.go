package eventbus

type ReadmeEventType string

const (
	ReadmeEventGenerated ReadmeEventType = "readme.generated"
	ReadmeEventScored    ReadmeEventType = "readme.scored"
)

// ReadmeEvent README 生成/打分完成事件
type ReadmeEvent struct {
	Type      ReadmeEventType
	OwnerKey  string
	RepoURL   string
	RepoName  string
	RepoOwner string
	Content   string
	Score     int
}
