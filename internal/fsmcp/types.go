package fsmcp

// ReadTextFileInput is the input schema for the read_text_file tool.
type ReadTextFileInput struct {
	Path  string `json:"path" jsonschema:"Absolute or workspace-relative path to read"`
	Line  *int   `json:"line,omitempty" jsonschema:"1-based line number to start reading from"`
	Limit *int   `json:"limit,omitempty" jsonschema:"Maximum number of lines to return"`
}

// WriteTextFileInput is the input schema for the write_text_file tool.
type WriteTextFileInput struct {
	Path    string `json:"path" jsonschema:"Absolute or workspace-relative path to write"`
	Content string `json:"content" jsonschema:"Full file content to write"`
}

// EditTextFileInput is the input schema for the edit_text_file tool.
type EditTextFileInput struct {
	Path      string `json:"path" jsonschema:"Absolute or workspace-relative path to edit"`
	OldString string `json:"old_string" jsonschema:"Exact text to replace"`
	NewString string `json:"new_string" jsonschema:"Replacement text"`
}

// EditInstruction is one entry of a multi_edit_text_file call, applied in
// order against the result of the previous entry.
type EditInstruction struct {
	OldString  string `json:"old_string" jsonschema:"Exact text to replace"`
	NewString  string `json:"new_string" jsonschema:"Replacement text"`
	ReplaceAll bool   `json:"replace_all,omitempty" jsonschema:"Replace every occurrence instead of just the first"`
}

// MultiEditTextFileInput is the input schema for the multi_edit_text_file
// tool.
type MultiEditTextFileInput struct {
	Path  string            `json:"path" jsonschema:"Absolute or workspace-relative path to edit"`
	Edits []EditInstruction `json:"edits" jsonschema:"Edits applied sequentially against the file"`
}

// readMeta is the structured "_meta.codex_fs_read" object attached to a
// read_text_file response whenever the file was paged or truncated.
type readMeta struct {
	StartLine                int  `json:"start_line"`
	EndLine                  int  `json:"end_line"`
	LinesReturned            int  `json:"lines_returned"`
	LineLimit                int  `json:"line_limit"`
	BytesReturned            int  `json:"bytes_returned"`
	Truncated                bool `json:"truncated"`
	TruncatedByLineLimit     bool `json:"truncated_by_line_limit,omitempty"`
	TruncatedByBytes         bool `json:"truncated_by_bytes,omitempty"`
	AdditionalLinesAvailable bool `json:"additional_lines_available"`
	NextLine                 *int `json:"next_line,omitempty"`
	MaxBytes                 *int `json:"max_bytes,omitempty"`
}

// diffRange is one "old_ranges"/"new_ranges" entry of the
// "_meta.codex_fs_diff" object attached to edit/multi-edit responses,
// parsed from a unified diff's "@@ -a,b +c,d @@" hunk header.
type diffRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// diffMeta is the structured "_meta.codex_fs_diff" object attached to
// edit_text_file / multi_edit_text_file responses.
type diffMeta struct {
	OldRanges []diffRange `json:"old_ranges"`
	NewRanges []diffRange `json:"new_ranges"`
}
