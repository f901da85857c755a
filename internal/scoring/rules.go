package scoring

// Lookup tables for Score. All keys are lower-case. They are built once
// and only ever read.

type set map[string]struct{}

func newSet(items ...string) set {
	s := make(set, len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

func (s set) has(k string) bool {
	_, ok := s[k]
	return ok
}

var (
	binaryExts = newSet(
		".png", ".jpg", ".jpeg", ".gif", ".ico", ".svg",
		".woff", ".woff2", ".ttf", ".eot",
		".mp3", ".mp4",
		".zip", ".tar", ".gz", ".bz2", ".xz",
		".pdf", ".exe", ".dll", ".so", ".dylib",
		".pyc", ".class", ".o", ".wasm",
		".bin", ".dat", ".db", ".sqlite",
	)

	lockFiles = newSet(
		"package-lock.json", "yarn.lock", "pnpm-lock.yaml",
		"pipfile.lock", "poetry.lock", "composer.lock",
		"gemfile.lock", "cargo.lock", "go.sum",
	)

	// Directory segments whose contents are build output, caches or tooling state.
	skipDirs = newSet(
		"node_modules", "vendor", "dist", "build",
		".next", "__pycache__", ".git", ".idea", ".vscode",
		"venv", ".env", "env", ".tox", "coverage", ".nyc_output",
	)

	generatedSuffixes = []string{".min.js", ".min.css", ".map", ".d.ts"}

	readmeNames = newSet("readme.md", "readme.rst", "readme.txt", "readme")

	manifestFiles = newSet(
		"package.json", "pyproject.toml", "setup.py", "setup.cfg",
		"cargo.toml", "go.mod", "pom.xml", "build.gradle", "build.gradle.kts",
		"gemfile", "composer.json", "cmakelists.txt", "makefile",
		"meson.build",
	)

	headerExts  = newSet(".h", ".hpp", ".hh")
	includeDirs = newSet("include")

	infraFiles = newSet(
		"dockerfile", "docker-compose.yml", "docker-compose.yaml",
		"compose.yml", "compose.yaml",
		".gitlab-ci.yml", "jenkinsfile",
	)
	infraExts    = newSet(".tf", ".tfvars")
	orchestrDirs = newSet("k8s", "kubernetes", "helm")
	yamlExts     = newSet(".yml", ".yaml")

	appConfigFiles = newSet(
		".env.example", "config.yaml", "config.yml", "config.json",
		"settings.py", "tsconfig.json", "webpack.config.js",
		"vite.config.ts", "vite.config.js", "next.config.js", "tailwind.config.js",
	)

	entryPointFiles = newSet(
		"main.py", "__main__.py", "index.ts", "index.js",
		"main.go", "main.rs", "main.java", "program.cs",
		"main.c", "main.cpp",
	)

	docFiles = newSet("contributing.md", "changelog.md", "license", "license.md", "architecture.md")
	docDirs  = newSet("docs", "doc")

	testDirs      = newSet("test", "tests", "spec", "__tests__")
	testPrefixes  = []string{"test_"}
	testSuffixes  = []string{"_test.py", "_test.go", ".test.js", ".test.ts", ".spec.ts", ".spec.js"}
	noiseFiles    = newSet(".editorconfig", ".babelrc", ".browserslistrc")
	noisePrefixes = []string{".eslintrc", ".prettierrc"}

	sourceExts = newSet(
		".py", ".js", ".ts", ".jsx", ".tsx",
		".go", ".rs", ".java", ".c", ".cpp", ".h",
		".rb", ".php", ".swift", ".kt", ".scala",
		".ex", ".clj", ".hs",
	)
)
