// Package language provides unified language code normalization and mapping.
//
// All language-related conversions (ISO 639 codes, BCP 47 tags, display
// names) are consolidated here to avoid duplication across the pipeline,
// export, and CLI packages.
package language
