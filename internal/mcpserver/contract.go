package mcpserver

// SnapshotFormat describes the artifact layout so LLM consumers can split a
// snapshot back into files.
const SnapshotFormat = `# snapcode Snapshot Format

A snapshot is a single UTF-8 text file holding every included project file.
Each file is written as one block:

` + "```" + `
<newline>
================================================================================
File: <path relative to the project root, "/"-separated>
================================================================================
<empty line>
<raw file content>
` + "```" + `

Rule lines are exactly 80 "=" characters. Content is written verbatim, so a
block ends where the next block's leading newline and rule line begin.

## What is included

- Files are visited per directory: files in name order, then subdirectories in
  name order.
- Any path with a segment equal to an excluded name is skipped (.git, .idea,
  .venv, venv, __pycache__, .pytest_cache, .mypy_cache, .ruff_cache,
  .coverage, .DS_Store, .vscode, .circleci, .github, target, plus configured
  extras). Matching is whole-segment: "target-build" is not excluded.
- Files whose name starts with "." are skipped.
- Files with a NUL byte in their first 1024 bytes are treated as binary and
  skipped, as are unreadable files and files that are not valid UTF-8.
`
