package github

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/readmegen/backend/config"
	"github.com/readmegen/backend/internal/pkg/git"
)

type fakeGitHub struct {
	repoStatus      int
	contentsStatus  int
	languagesStatus int
	files           map[string]string
	fileHits        atomic.Int32
}

func (f *fakeGitHub) handler(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octocat/Hello-World", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/vnd.github.v3+json" {
			t.Errorf("unexpected accept header: %s", r.Header.Get("Accept"))
		}
		if f.repoStatus != 0 {
			w.WriteHeader(f.repoStatus)
			w.Write([]byte(`{"message":"Not Found"}`))
			return
		}
		w.Write([]byte(`{
			"name": "Hello-World",
			"description": "My first repo",
			"language": "JavaScript",
			"topics": ["demo"],
			"license": {"key": "mit", "name": "MIT License"},
			"stargazers_count": 1000,
			"forks_count": 42,
			"html_url": "https://github.com/octocat/Hello-World",
			"default_branch": "main",
			"owner": {"login": "octocat"}
		}`))
	})
	mux.HandleFunc("/repos/octocat/Hello-World/contents/", func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/repos/octocat/Hello-World/contents/")
		if name == "" {
			if f.contentsStatus != 0 {
				w.WriteHeader(f.contentsStatus)
				return
			}
			w.Write([]byte(`[
				{"name": "src", "type": "dir"},
				{"name": "package.json", "type": "file"},
				{"name": "go.mod", "type": "file"},
				{"name": "README.md", "type": "file"}
			]`))
			return
		}
		f.fileHits.Add(1)
		content, ok := f.files[name]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		encoded := base64.StdEncoding.EncodeToString([]byte(content))
		// 模拟 GitHub 的换行分段
		if len(encoded) > 10 {
			encoded = encoded[:10] + "\n" + encoded[10:]
		}
		w.Write([]byte(`{"name":"` + name + `","type":"file","encoding":"base64","content":"` + strings.ReplaceAll(encoded, "\n", `\n`) + `"}`))
	})
	mux.HandleFunc("/repos/octocat/Hello-World/languages", func(w http.ResponseWriter, r *http.Request) {
		if f.languagesStatus != 0 {
			w.WriteHeader(f.languagesStatus)
			return
		}
		w.Write([]byte(`{"TypeScript": 200, "JavaScript": 5000, "CSS": 200}`))
	})
	return mux
}

func newTestBuilder(t *testing.T, fake *fakeGitHub) *Builder {
	t.Helper()
	server := httptest.NewServer(fake.handler(t))
	t.Cleanup(server.Close)
	client := NewClient(config.GitHubConfig{APIURL: server.URL})
	return NewBuilder(client)
}

func TestBuilderBuild(t *testing.T) {
	fake := &fakeGitHub{files: map[string]string{
		"package.json": `{"dependencies":{"react":"18"},"devDependencies":{"vite":"5"}}`,
	}}
	builder := newTestBuilder(t, fake)

	rc, err := builder.Build(context.Background(), "https://github.com/octocat/Hello-World")
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}

	if rc.Name != "Hello-World" || rc.Owner != "octocat" {
		t.Fatalf("unexpected identity: %s/%s", rc.Owner, rc.Name)
	}
	if rc.Stars != 1000 || rc.Forks != 42 {
		t.Fatalf("unexpected counts: stars=%d forks=%d", rc.Stars, rc.Forks)
	}
	if rc.Description != "My first repo" || rc.License != "MIT License" {
		t.Fatalf("unexpected metadata: %+v", rc)
	}
	if strings.Join(rc.Languages, ",") != "JavaScript,CSS,TypeScript" {
		t.Fatalf("unexpected languages order: %v", rc.Languages)
	}
	if len(rc.FileTree) != 4 || !rc.FileTree[0].IsDir() {
		t.Fatalf("unexpected file tree: %+v", rc.FileTree)
	}
	if !rc.HasPackageJSON() {
		t.Fatalf("expected package.json manifest")
	}
	// go.mod 拉取 404，视为缺失
	if rc.HasGoMod() {
		t.Fatalf("expected go.mod to be absent")
	}
	if strings.Join(rc.Dependencies, ",") != "react,vite" {
		t.Fatalf("unexpected dependencies: %v", rc.Dependencies)
	}
	// README.md 不在白名单内，只拉取了 package.json 和 go.mod
	if hits := fake.fileHits.Load(); hits != 2 {
		t.Fatalf("expected 2 manifest fetches, got %d", hits)
	}
	if !strings.HasPrefix(rc.RenderFileTree(), "📁 src\n📄 package.json") {
		t.Fatalf("unexpected tree rendering: %q", rc.RenderFileTree())
	}

	info := rc.RepoInfo()
	if info.Name != "Hello-World" || info.Stars != 1000 || info.URL != "https://github.com/octocat/Hello-World" {
		t.Fatalf("unexpected repo info: %+v", info)
	}
}

func TestBuilderBuildMetadataNotFound(t *testing.T) {
	builder := newTestBuilder(t, &fakeGitHub{repoStatus: http.StatusNotFound})

	rc, err := builder.Build(context.Background(), "octocat/Hello-World")
	if rc != nil {
		t.Fatalf("expected no partial context, got %+v", rc)
	}
	if !errors.Is(err, ErrUpstreamFetch) {
		t.Fatalf("expected ErrUpstreamFetch, got %v", err)
	}
	var upstream *UpstreamFetchError
	if !errors.As(err, &upstream) || upstream.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 upstream error, got %v", err)
	}
}

func TestBuilderBuildDegradesEnrichments(t *testing.T) {
	fake := &fakeGitHub{
		contentsStatus:  http.StatusInternalServerError,
		languagesStatus: http.StatusForbidden,
	}
	builder := newTestBuilder(t, fake)

	rc, err := builder.Build(context.Background(), "octocat/Hello-World.git")
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if len(rc.FileTree) != 0 || len(rc.Languages) != 0 || len(rc.Manifests) != 0 {
		t.Fatalf("expected empty enrichments, got %+v", rc)
	}
	if rc.Dependencies == nil || len(rc.Dependencies) != 0 {
		t.Fatalf("expected empty dependency list, got %v", rc.Dependencies)
	}
}

func TestBuilderBuildInvalidReference(t *testing.T) {
	builder := NewBuilder(NewClient(config.GitHubConfig{}))
	if _, err := builder.Build(context.Background(), "not a repo"); !errors.Is(err, git.ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference, got %v", err)
	}
}

func TestDecodeContent(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("module example.com/x\n"))
	decoded, err := decodeContent(encoded[:8] + "\n" + encoded[8:])
	if err != nil {
		t.Fatalf("decodeContent error: %v", err)
	}
	if decoded != "module example.com/x\n" {
		t.Fatalf("unexpected content: %q", decoded)
	}
}
