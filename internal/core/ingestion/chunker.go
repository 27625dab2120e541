package ingestion

// WindowChunker はテキストを固定長のオーバーラップ付きウィンドウに分割します。
// サイズとオーバーラップの単位は文字（rune）であり、マルチバイト文字を
// 途中で分断しない。
type WindowChunker struct {
	size    int
	overlap int
}

// NewWindowChunker は新しいWindowChunkerを作成します。
// 0 <= overlap < size を満たさない場合は ErrInvalidChunkConfig を返す。
func NewWindowChunker(size, overlap int) (*WindowChunker, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, ErrInvalidChunkConfig
	}

	return &WindowChunker{
		size:    size,
		overlap: overlap,
	}, nil
}

// Chunk はテキストをチャンク列に分割します。
// 各チャンクは runes[cursor : cursor+size]、カーソルは size-overlap ずつ前進する。
// 入力のみに依存する純粋関数であり、連結時にoverlap分を重複排除すると
// 元のテキストを完全に復元できる。
func (c *WindowChunker) Chunk(text string) []string {
	if text == "" {
		return nil
	}

	// バイト単位のスライスはマルチバイト文字を分断するため文字単位で切る
	runes := []rune(text)

	var chunks []string
	for cursor := 0; cursor < len(runes); cursor += c.size - c.overlap {
		end := cursor + c.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[cursor:end]))
	}

	return chunks
}

// Size はチャンクサイズを返す
func (c *WindowChunker) Size() int {
	return c.size
}

// Overlap はオーバーラップ長を返す
func (c *WindowChunker) Overlap() int {
	return c.overlap
}
