// Package scoring ranks repository files by how much they are likely to
// tell a reader about the project.
package scoring

import (
	"path"
	"strings"

	"reposummarizer/internal/types"
)

const (
	scoreSkip       = 0
	scoreRootReadme = 100
	scoreManifest   = 90
	scoreHeader     = 85
	scoreInfra      = 80
	scoreReadme     = 80
	scoreAppConfig  = 75
	scoreEntryPoint = 70
	scoreSource     = 60
	scoreDocs       = 50
	scoreTest       = 30
	scoreNoise      = 10

	sourcePenaltyStep = 5000
	sourcePenaltyMax  = 20
)

// Scorer assigns an importance score to a (path, size) pair.
type Scorer struct {
	MaxFileSize  int64
	MaxTreeDepth int
}

// New returns a Scorer using the file-size and depth ceilings of l.
func New(l types.Limits) *Scorer {
	return &Scorer{MaxFileSize: l.MaxFileSize, MaxTreeDepth: l.MaxTreeDepth}
}

// Score returns a value in [0,100]; 0 means the file is excluded.
// Rules are checked in order and the first match wins.
func (s *Scorer) Score(p string, size int64) int {
	size = max(size, 0)
	lower := strings.ToLower(p)
	name := path.Base(lower)
	ext := path.Ext(name)
	dirs := dirSegments(lower)
	depth := types.PathDepth(p)

	switch {
	case binaryExts.has(ext),
		lockFiles.has(name),
		anySegment(dirs, skipDirs),
		hasAnySuffix(name, generatedSuffixes),
		size > s.MaxFileSize,
		depth > s.MaxTreeDepth:
		return scoreSkip
	}

	if readmeNames.has(name) {
		if depth == 1 {
			return scoreRootReadme
		}
		return scoreReadme
	}
	if manifestFiles.has(name) {
		return scoreManifest
	}
	if headerExts.has(ext) && anySegment(dirs, includeDirs) {
		return scoreHeader
	}
	if isInfra(lower, name, ext, dirs) {
		return scoreInfra
	}
	if appConfigFiles.has(name) {
		return scoreAppConfig
	}
	if entryPointFiles.has(name) || (name == "__init__.py" && depth <= 2) {
		return scoreEntryPoint
	}
	if docFiles.has(name) || (ext == ".md" && anySegment(dirs, docDirs)) {
		return scoreDocs
	}
	if anySegment(dirs, testDirs) || hasAnyPrefix(name, testPrefixes) || hasAnySuffix(name, testSuffixes) {
		return scoreTest
	}
	if noiseFiles.has(name) || hasAnyPrefix(name, noisePrefixes) {
		return scoreNoise
	}
	if sourceExts.has(ext) {
		penalty := int(size / sourcePenaltyStep)
		if penalty > sourcePenaltyMax {
			penalty = sourcePenaltyMax
		}
		return max(scoreSource-penalty, 1)
	}
	return scoreSkip
}

func isInfra(lower, name, ext string, dirs []string) bool {
	if infraFiles.has(name) || infraExts.has(ext) {
		return true
	}
	if strings.HasPrefix(lower, ".github/workflows/") && yamlExts.has(ext) {
		return true
	}
	return len(dirs) > 0 && orchestrDirs.has(dirs[0]) && yamlExts.has(ext)
}

// dirSegments returns the directory components of p, without the file name.
func dirSegments(p string) []string {
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return nil
	}
	return strings.Split(p[:i], "/")
}

func anySegment(segs []string, s set) bool {
	for _, seg := range segs {
		if s.has(seg) {
			return true
		}
	}
	return false
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, pre := range prefixes {
		if strings.HasPrefix(s, pre) {
			return true
		}
	}
	return false
}
