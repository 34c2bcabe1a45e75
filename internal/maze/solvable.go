package maze

import "symbion/internal/geom"

// solvable runs a breadth-first search over a coarse occupancy grid. Cells
// whose center lies within the agent radius of any wall are blocked, which
// is conservative for the continuous navigator: grid-reachable implies
// navigator-reachable for passages at least one cell wider than the agent.
func solvable(s *Structure, cfg DecodeConfig) bool {
	cellSize := cfg.PassageWidth / 3
	if cellSize <= 0 {
		return false
	}
	cols := int(s.Width/cellSize) + 1
	rows := int(s.Height/cellSize) + 1
	if cols < 2 || rows < 2 {
		return false
	}

	blocked := make([]bool, cols*rows)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			center := geom.Point{
				X: (float64(col) + 0.5) * cellSize,
				Y: (float64(row) + 0.5) * cellSize,
			}
			for _, wall := range s.Walls {
				if wall.DistanceToPoint(center) < cfg.AgentRadius {
					blocked[row*cols+col] = true
					break
				}
			}
		}
	}

	startCol, startRow := cellFor(s.Start, cellSize, cols, rows)
	goalCol, goalRow := cellFor(s.Goal, cellSize, cols, rows)
	startIdx := startRow*cols + startCol
	goalIdx := goalRow*cols + goalCol
	if blocked[startIdx] || blocked[goalIdx] {
		return false
	}

	visited := make([]bool, cols*rows)
	queue := []int{startIdx}
	visited[startIdx] = true
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current == goalIdx {
			return true
		}
		row := current / cols
		col := current % cols
		for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
			nc, nr := col+d[0], row+d[1]
			if nc < 0 || nc >= cols || nr < 0 || nr >= rows {
				continue
			}
			idx := nr*cols + nc
			if visited[idx] || blocked[idx] {
				continue
			}
			visited[idx] = true
			queue = append(queue, idx)
		}
	}
	return false
}

func cellFor(p geom.Point, cellSize float64, cols, rows int) (int, int) {
	col := int(p.X / cellSize)
	row := int(p.Y / cellSize)
	if col < 0 {
		col = 0
	}
	if col >= cols {
		col = cols - 1
	}
	if row < 0 {
		row = 0
	}
	if row >= rows {
		row = rows - 1
	}
	return col, row
}
