package mcpserver

// LedgerFormatContract describes the ledger file consumed by every
// downstream tool.
const LedgerFormatContract = `# catdog Ledger Format (schema v1)

The ledger is a UTF-8 CSV file with exactly this header row:

` + "```" + `
filename,label,timestamp
` + "```" + `

## Rows

- **filename**: plain file name of the source image (no directory part). Unique
  per live decision; when a name repeats, the later row wins.
- **label**: ` + "`cat`" + ` or ` + "`dog`" + `. Nothing else is accepted.
- **timestamp**: local time, ` + "`YYYY-MM-DD HH:MM:SS`" + `.

## Rules

1. Rows are appended one per labeling decision and fsynced before the session
   advances.
2. Undo removes the row for the previous item by rewriting the file without it;
   when no rows remain the file is deleted.
3. Rows that fail validation are skipped with a warning; a different header is
   rejected as an unsupported schema.
4. Each live row has a copy of the image in the bucket directory of its label.
   ` + "`verify_buckets`" + ` reports missing, misplaced, orphaned and stale copies.

## Example

` + "```" + `
filename,label,timestamp
cat.001.jpg,cat,2025-06-01 10:30:00
dog.042.png,dog,2025-06-01 10:30:07
` + "```" + `
`
