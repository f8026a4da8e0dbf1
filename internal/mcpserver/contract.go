package mcpserver

// ReviewFormatGuide explains to LLM clients how reviews are recorded and
// which date phrases schedule_review accepts.
const ReviewFormatGuide = `# Tickler Review Format

Scheduling a review links a note (or one line of it) under the review
heading of a date-named daily note. The daily note is created when missing.

## Daily note

- File name: the resolved date key plus ` + "`.md`" + `, e.g. ` + "`2024-05-02.md`" + `,
  inside the configured daily folder.
- An existing note whose name, path or basename equals the key is reused,
  wherever it lives in the vault.

## Entries

` + "```" + `markdown
## Review
- [[Newest note]]
![[Some note#^k3x9a1q]]
- [[Older note]]
` + "```" + `

1. Entries are inserted directly below the heading, newest first.
2. Whole notes use the line prefix (default ` + "`- `" + `).
3. Single lines use the block prefix (default ` + "`!`" + `) and link to a block
   anchor. A line without an anchor gets one appended: ` + "`text ^k3x9a1q`" + `.
4. When the heading is missing it is appended to the end of the note,
   preceded by a blank line.

## Date phrases

- ` + "`today`, `tomorrow`, `yesterday`, `2024-05-02`" + `
- ` + "`in two weeks`, `in 3 days`, `in a month`" + `
- ` + "`2 weeks from now`, `three days ago`" + `
- ` + "`next week`, `last month`, `friday`, `next monday`" + `

A bare duration such as ` + "`two weeks`" + ` is rejected; write ` + "`in two weeks`" + `.
`
