package render

// tile is a half-open pixel rectangle [x0,x1) x [y0,y1). The tile set
// produced by splitTiles partitions the framebuffer exactly, so each
// pixel is owned by one tile and one worker at a time.
type tile struct {
	x0, y0, x1, y1 int
}

func (t tile) width() int  { return t.x1 - t.x0 }
func (t tile) height() int { return t.y1 - t.y0 }

// subdivisionDepth picks how many binary splits to apply for a worker
// count: enough that tiles outnumber workers by at least 2x, which
// keeps the pool busy when triangle load is uneven across the screen.
func subdivisionDepth(workers int) int {
	depth := 0
	for 1<<depth < workers {
		depth++
	}
	return depth + 1
}

// splitTiles partitions a width x height framebuffer into 2^depth
// tiles by recursive binary subdivision, splitting the longer axis at
// each level. Tiles come out in a stable spatial order.
func splitTiles(width, height, workers int) []tile {
	root := tile{0, 0, width, height}
	if width <= 0 || height <= 0 {
		return nil
	}

	tiles := []tile{root}
	for d := 0; d < subdivisionDepth(workers); d++ {
		next := make([]tile, 0, len(tiles)*2)
		for _, t := range tiles {
			a, b, ok := t.split()
			if !ok {
				next = append(next, t)
				continue
			}
			next = append(next, a, b)
		}
		tiles = next
	}
	return tiles
}

// split halves a tile along its longer axis. Returns ok=false when the
// tile is a single pixel in both directions.
func (t tile) split() (a, b tile, ok bool) {
	if t.width() >= t.height() {
		if t.width() < 2 {
			if t.height() < 2 {
				return t, t, false
			}
			mid := t.y0 + t.height()/2
			return tile{t.x0, t.y0, t.x1, mid}, tile{t.x0, mid, t.x1, t.y1}, true
		}
		mid := t.x0 + t.width()/2
		return tile{t.x0, t.y0, mid, t.y1}, tile{mid, t.y0, t.x1, t.y1}, true
	}
	mid := t.y0 + t.height()/2
	return tile{t.x0, t.y0, t.x1, mid}, tile{t.x0, mid, t.x1, t.y1}, true
}

// DrawTileGrid outlines the dispatch tiles into the framebuffer.
// Debug overlay; bypasses the depth buffer.
func (p *Pipeline) DrawTileGrid(c Color) {
	for _, t := range p.tiles {
		p.fb.DrawRectOutline(t.x0, t.y0, t.width(), t.height(), c)
	}
}
