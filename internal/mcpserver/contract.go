package mcpserver

// DocumentFormatContract describes the canonical document format that
// LLM consumers should follow when creating or updating articles.
const DocumentFormatContract = `# Inkwell Document Format Contract

Every Markdown document stored in inkwell carries a small metadata
envelope ahead of the body.

## Structure

` + "```" + `markdown
---
theme: lapis                        # REQUIRED - theme identifier
themeName: Lapis Blue               # REQUIRED - human-readable theme name
---

Body text in standard Markdown.
` + "```" + `

## Rules

1. **The envelope is mandatory.** The ` + "```" + `---` + "```" + ` fences must be the first
   thing in the file (no leading blank lines).
2. **Envelope lines are plain ` + "`" + `key: value` + "`" + ` pairs**, one per line. Values may
   be single- or double-quoted; quotes are stripped on read. Nested YAML
   structures are not supported.
3. **` + "`" + `theme` + "`" + ` defaults to ` + "`" + `default` + "`" + `** when the envelope is absent or the key
   is missing; ` + "`" + `themeName` + "`" + ` defaults to ` + "`" + `Default Theme` + "`" + `.
4. **File paths** end with ` + "`" + `.md` + "`" + ` and use forward slashes. In a folder
   workspace each article lives at ` + "`" + `<Name>/article.md` + "`" + `.
5. **Encoding** is UTF-8.

## Assets & Images

- Articles in a folder workspace keep images in a sibling ` + "`" + `images/` + "`" + `
  directory; flat workspaces share one ` + "`" + `images/` + "`" + ` directory at the root.
- Reference images with relative paths: ` + "`" + `![description](images/diagram.png)` + "`" + `
- The embedded record store backend holds text only; it has no image support.

## Example

` + "```" + `markdown
---
theme: lapis
themeName: Lapis Blue
---

# Release Notes

What changed this week.

![Burn-down chart](images/burndown.png)
` + "```" + `
`
