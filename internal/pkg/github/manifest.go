package github

import (
	"bytes"
	"encoding/json"
	"fmt"

	"k8s.io/klog/v2"
)

// MaxDependencies 依赖列表上限
const MaxDependencies = 20

// Manifest 文件名
const (
	ManifestPackageJSON  = "package.json"
	ManifestRequirements = "requirements.txt"
	ManifestCargoToml    = "Cargo.toml"
	ManifestGoMod        = "go.mod"
	ManifestPomXML       = "pom.xml"
	ManifestBuildGradle  = "build.gradle"
	ManifestGemfile      = "Gemfile"
	ManifestComposerJSON = "composer.json"
)

// ManifestFiles 需要拉取内容的包管理清单白名单
var ManifestFiles = []string{
	ManifestPackageJSON,
	ManifestRequirements,
	ManifestCargoToml,
	ManifestGoMod,
	ManifestPomXML,
	ManifestBuildGradle,
	ManifestGemfile,
	ManifestComposerJSON,
}

// PackageManagers 清单文件对应的包管理器描述
var PackageManagers = map[string]string{
	ManifestPackageJSON:  "npm/yarn (Node.js)",
	ManifestRequirements: "pip (Python)",
	ManifestCargoToml:    "Cargo (Rust)",
	ManifestGoMod:        "Go modules",
	ManifestPomXML:       "Maven (Java)",
	ManifestBuildGradle:  "Gradle (JVM)",
	ManifestGemfile:      "Bundler (Ruby)",
	ManifestComposerJSON: "Composer (PHP)",
}

func isManifest(name string) bool {
	for _, m := range ManifestFiles {
		if m == name {
			return true
		}
	}
	return false
}

type packageManifest struct {
	Dependencies    json.RawMessage `json:"dependencies"`
	DevDependencies json.RawMessage `json:"devDependencies"`
}

// ExtractNodeDependencies 从 package.json 提取依赖名，dependencies 在前 devDependencies 在后，
// 保留文件中的键顺序，最多 MaxDependencies 个；解析失败返回空列表
func ExtractNodeDependencies(content string) []string {
	var pkg packageManifest
	if err := json.Unmarshal([]byte(content), &pkg); err != nil {
		klog.V(6).Infof("Failed to parse package.json: %v", err)
		return []string{}
	}

	deps := []string{}
	for _, raw := range []json.RawMessage{pkg.Dependencies, pkg.DevDependencies} {
		keys, err := objectKeys(raw)
		if err != nil {
			klog.V(6).Infof("Failed to parse package.json dependencies: %v", err)
			continue
		}
		deps = append(deps, keys...)
	}

	if len(deps) > MaxDependencies {
		deps = deps[:MaxDependencies]
	}
	return deps
}

// objectKeys 按出现顺序返回 JSON 对象的键；null 或缺失返回空
func objectKeys(raw json.RawMessage) ([]string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected key token %v", tok)
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}
