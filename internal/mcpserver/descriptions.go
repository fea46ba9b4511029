package mcpserver

// Tool descriptions with interpretation guidance for LLMs.

func describeCompareFiles() string {
	return `Compares source files pairwise for structural similarity (plagiarism and clone detection).
Files are parsed into syntax trees, so renamed identifiers, changed comments and reformatting
do not hide copied code.

USE WHEN:
- Checking a set of submissions or solutions for copied work
- Finding files that were forked and edited instead of shared
- Confirming that two implementations are independent
- Locating which regions of two files correspond

INTERPRETING RESULTS:
- similarity is the fraction of fingerprints two files share (0.0-1.0)
- similarity >= 0.75: very likely derived from each other, inspect the blocks
- similarity 0.5-0.75: substantial shared structure, often a common ancestor or template
- similarity < 0.25: usually coincidental idioms of the language
- identical: both files have the same content
- Clusters group files linked by pairs above the cluster threshold
- Boilerplate shared by every file inflates scores; pass ignore_files or max_hash_count

METRICS RETURNED:
- Diffs: left/right file, similarity, shared fingerprint count, matching blocks
- Blocks (show_blocks): line:column selections in both files plus fingerprint ranges
- Clusters: groups of mutually similar files
- Failures: files skipped because they could not be read or parsed
- Summary: counts of files and pairs, distribution of similarity scores`
}

func describeCompareSources() string {
	return `Compares source code passed inline for structural similarity. Same engine as compare_files,
for code that is not on disk, such as snippets from a review or generated candidates.

USE WHEN:
- Checking whether a snippet was copied from a known source
- Comparing generated code against existing implementations
- Testing similarity options on small examples

INTERPRETING RESULTS:
- Each file needs a path; its extension selects the language unless language is set
- Short inputs yield few fingerprints; lower kmer_length and window_size for snippets
- similarity >= 0.75: very likely derived from each other
- similarity < 0.25: usually coincidental

METRICS RETURNED:
- Diffs: pairs with similarity, shared fingerprint count and matching blocks
- Failures: inputs that could not be parsed
- Summary: counts of files and pairs, distribution of similarity scores`
}
