package bom

// Assemble concatenates the fixed and extra column lists into a new slice
func Assemble(fixed, extra []string) []string {
	columns := make([]string, 0, len(fixed)+len(extra))
	columns = append(columns, fixed...)
	columns = append(columns, extra...)
	return columns
}
