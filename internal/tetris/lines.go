package tetris

// RowsPerGarbage is how many cleared lines send one garbage row to the
// opponents.
const RowsPerGarbage = 2

// LinesPerLevel is how many cleared lines advance the level by one.
const LinesPerLevel = 10

var lineScores = [...]int{0, 40, 100, 300, 1200}

// CompletedRows returns the indices, top to bottom, of every row of g
// without an empty cell.
func CompletedRows(g Grid) []int {
	var rows []int
	for r := range g {
		if rowComplete(g[r]) {
			rows = append(rows, r)
		}
	}
	return rows
}

func rowComplete(row []Kind) bool {
	for _, k := range row {
		if k == Empty {
			return false
		}
	}
	return true
}

// Clear removes every completed row of g, keeping the relative order of the
// others, and adds as many empty rows at the top. It returns the new grid
// and the number of rows removed.
func Clear(g Grid) (Grid, int) {
	out := make(Grid, 0, len(g))
	cleared := 0
	for r := range g {
		if rowComplete(g[r]) {
			cleared++
			continue
		}
		row := make([]Kind, len(g[r]))
		copy(row, g[r])
		out = append(out, row)
	}
	top := make(Grid, cleared, len(g))
	for i := range top {
		top[i] = emptyRow()
	}
	return append(top, out...), cleared
}

// Score returns the points for clearing lines rows with one placement at
// the given level. Counts above four score as four.
func Score(lines, level int) int {
	if lines <= 0 {
		return 0
	}
	lines = min(lines, len(lineScores)-1)
	return lineScores[lines] * (level + 1)
}

// Level returns the level reached after totalLines cleared lines.
func Level(totalLines int) int {
	return totalLines / LinesPerLevel
}

// GarbageFor returns the number of garbage rows sent to opponents for
// clearing lines rows with one placement.
func GarbageFor(lines int) int {
	if lines <= 0 {
		return 0
	}
	return lines / RowsPerGarbage
}
