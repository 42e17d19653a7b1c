// Package extract parses the municipal waste collection page into raw
// schedule events.
//
// The page is a single table. Each of its leading rows describes one waste
// type: the second cell holds the name and the third cell holds a bold
// "next pickup" line followed by one line per pickup, separated by <br />.
// Anything that does not match this shape is reported as an
// ExtractionError for that row only.
package extract
