package pofile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// maxLine bounds a single physical line of a catalog.
const maxLine = 1024 * 1024

// Parse reads a PO/POT catalog.
func Parse(r io.Reader) (*File, error) {
	f := NewFile()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)

	var (
		current *Entry
		field   string // last keyword, target of continuation lines
		lineNum int
	)

	flush := func() {
		if current == nil {
			return
		}
		if current.IsHeader() {
			f.Header = current
		} else {
			f.Entries = append(f.Entries, current)
		}
		current = nil
		field = ""
	}

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" {
			flush()
			continue
		}

		obsolete := false
		if strings.HasPrefix(line, "#~") {
			obsolete = true
			line = strings.TrimSpace(strings.TrimPrefix(line, "#~"))
			if line == "" {
				continue
			}
			if strings.HasPrefix(line, "|") {
				line = "#" + line
			}
		}

		keyword, rest := splitKeyword(line)
		// A comment or a new msgctxt/msgid after a msgstr starts the next
		// entry even without a blank line between them.
		if strings.HasPrefix(field, "msgstr") &&
			(strings.HasPrefix(line, "#") || keyword == "msgctxt" || keyword == "msgid") {
			flush()
		}
		if current == nil {
			current = &Entry{MsgStrPlural: make(map[int]string)}
		}
		if obsolete {
			current.Obsolete = true
		}

		if strings.HasPrefix(line, "#") {
			parseComment(current, line)
			continue
		}

		switch {
		case keyword == "msgctxt":
			current.MsgCtxt = unquote(rest)
		case keyword == "msgid":
			current.MsgID = unquote(rest)
		case keyword == "msgid_plural":
			current.MsgIDPlural = unquote(rest)
		case keyword == "msgstr":
			current.MsgStr = unquote(rest)
		case strings.HasPrefix(keyword, "msgstr["):
			idx, err := pluralIndex(keyword)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
			current.MsgStrPlural[idx] = unquote(rest)
		case strings.HasPrefix(line, `"`):
			appendContinuation(current, field, unquote(line))
			continue
		default:
			return nil, fmt.Errorf("line %d: unexpected %q", lineNum, line)
		}
		field = keyword
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return f, nil
}

// ParseFile reads a catalog from disk. Open errors are wrapped so callers
// can test them with errors.Is(err, fs.ErrNotExist).
func ParseFile(path string) (*File, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer in.Close()

	f, err := Parse(in)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return f, nil
}

func parseComment(e *Entry, line string) {
	switch {
	case strings.HasPrefix(line, "#:"):
		e.References = append(e.References, strings.TrimSpace(line[2:]))
	case strings.HasPrefix(line, "#,"):
		for _, flag := range strings.Split(line[2:], ",") {
			if flag = strings.TrimSpace(flag); flag != "" {
				e.Flags = append(e.Flags, flag)
			}
		}
	case strings.HasPrefix(line, "#."):
		e.ExtractedComments = append(e.ExtractedComments, strings.TrimSpace(line[2:]))
	case strings.HasPrefix(line, "#|"):
		prev := strings.TrimSpace(line[2:])
		if strings.HasPrefix(prev, "msgid ") {
			e.PreviousMsgID = unquote(strings.TrimPrefix(prev, "msgid "))
		}
	default:
		e.TranslatorComments = append(e.TranslatorComments, strings.TrimPrefix(line[1:], " "))
	}
}

func splitKeyword(line string) (string, string) {
	idx := strings.IndexAny(line, " \t")
	if idx < 0 {
		return line, ""
	}
	return line[:idx], line[idx+1:]
}

func pluralIndex(keyword string) (int, error) {
	inner := strings.TrimSuffix(strings.TrimPrefix(keyword, "msgstr["), "]")
	idx, err := strconv.Atoi(inner)
	if err != nil || idx < 0 {
		return 0, fmt.Errorf("invalid plural index in %q", keyword)
	}
	return idx, nil
}

func appendContinuation(e *Entry, field, val string) {
	switch field {
	case "msgctxt":
		e.MsgCtxt += val
	case "msgid":
		e.MsgID += val
	case "msgid_plural":
		e.MsgIDPlural += val
	case "msgstr":
		e.MsgStr += val
	default:
		if idx, err := pluralIndex(field); err == nil {
			e.MsgStrPlural[idx] += val
		}
	}
}

// Write serialises the catalog.
func (f *File) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)

	first := true
	if f.Header != nil {
		writeEntry(bw, f.Header)
		first = false
	}
	for _, e := range f.Entries {
		if !first {
			bw.WriteString("\n")
		}
		writeEntry(bw, e)
		first = false
	}
	return bw.Flush()
}

// WriteFile writes the catalog to path, replacing any existing file.
func (f *File) WriteFile(path string) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := f.Write(out); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func writeEntry(w *bufio.Writer, e *Entry) {
	prefix := ""
	if e.Obsolete {
		prefix = "#~ "
	}

	for _, c := range e.TranslatorComments {
		fmt.Fprintf(w, "# %s\n", c)
	}
	for _, c := range e.ExtractedComments {
		fmt.Fprintf(w, "#. %s\n", c)
	}
	for _, ref := range e.References {
		fmt.Fprintf(w, "#: %s\n", ref)
	}
	if len(e.Flags) > 0 {
		fmt.Fprintf(w, "#, %s\n", strings.Join(e.Flags, ", "))
	}
	if e.PreviousMsgID != "" {
		fmt.Fprintf(w, "#| msgid %s\n", quote(e.PreviousMsgID))
	}

	if e.MsgCtxt != "" {
		writeField(w, prefix+"msgctxt", e.MsgCtxt)
	}
	writeField(w, prefix+"msgid", e.MsgID)
	if e.MsgIDPlural != "" {
		writeField(w, prefix+"msgid_plural", e.MsgIDPlural)
	}

	if e.MsgIDPlural != "" && len(e.MsgStrPlural) > 0 {
		indices := make([]int, 0, len(e.MsgStrPlural))
		for idx := range e.MsgStrPlural {
			indices = append(indices, idx)
		}
		sort.Ints(indices)
		for _, idx := range indices {
			writeField(w, fmt.Sprintf("%smsgstr[%d]", prefix, idx), e.MsgStrPlural[idx])
		}
		return
	}
	writeField(w, prefix+"msgstr", e.MsgStr)
}

// writeField writes a keyword and its value, splitting multi-line values the
// way xgettext does: an empty first string, then one string per line.
func writeField(w *bufio.Writer, keyword, value string) {
	if !strings.Contains(value, "\n") {
		fmt.Fprintf(w, "%s %s\n", keyword, quote(value))
		return
	}

	fmt.Fprintf(w, "%s \"\"\n", keyword)
	parts := strings.Split(value, "\n")
	for i, part := range parts {
		if i < len(parts)-1 {
			fmt.Fprintf(w, "%s\n", quote(part+"\n"))
		} else if part != "" {
			fmt.Fprintf(w, "%s\n", quote(part))
		}
	}
}

func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`, "\r", `\r`)
	return `"` + r.Replace(s) + `"`
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return s
	}
	s = s[1 : len(s)-1]

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			b.WriteByte(s[i])
			continue
		}
		switch s[i+1] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '\\':
			b.WriteByte('\\')
		case '"':
			b.WriteByte('"')
		default:
			b.WriteByte(s[i])
			continue
		}
		i++
	}
	return b.String()
}
