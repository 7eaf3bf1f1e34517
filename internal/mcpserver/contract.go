package mcpserver

// FrontmatterContract describes the header and link layout of the markdown
// files an export pass writes, for LLM consumers reading them back.
const FrontmatterContract = `# Generated File Format

Every markdown file written by an export pass has this structure.

## Structure

` + "```" + `markdown
---
layout: post                        # OPTIONAL – when a layout field is configured
title: Hello World                  # REQUIRED – key is the camelized title field
date: 2024-01-02                    # OPTIONAL – start of the configured date field
cover: /assets/img/hello-world_cover.png
tags: ["go", "site"]                # multi-select and person fields: quoted inline lists
draft: false                        # checkboxes are always written
series:                             # relation fields: one entry per related record
  - title: Part One
    slug: part-one
    filename: part-one.md
permalink: blog/hello-world/        # OPTIONAL – when permalinks are enabled
---

Body rendered from the record's blocks.
` + "```" + `

## Rules

1. **Key order is fixed:** layout, title, date, cover, then field groups in the order
   text, multi-select, select, date, checkbox, url, number, person, relation, formula.
2. **Keys are camelized** field names (` + "`" + `Publish Date` + "`" + ` becomes ` + "`" + `publishDate` + "`" + `).
3. **Empty values are omitted**, except checkboxes which are written as true or false.
4. **Relations** that could not be resolved keep their entry with empty title, slug and filename.
5. **File names** are the slugified title plus ` + "`" + `.md` + "`" + `, optionally prefixed with
   the date as ` + "`" + `YYYYMMDD_` + "`" + `.

## Assets

- Images, PDFs and movies are downloaded and the body links point at the local copy,
  e.g. ` + "`" + `![photo](/assets/img/hello-world_0.png)` + "`" + `.
- Local names are ` + "`" + `<slug>_<ordinal>.<ext>` + "`" + `; the cover is ` + "`" + `<slug>_cover.<ext>` + "`" + `.
- A download that failed leaves the remote URL in place. Use the ` + "`" + `list_remote_assets` + "`" + `
  tool to find such files.
`
