package indexer

import (
	"bufio"
	"bytes"
	"os"
)

// readFileForExtraction loads a file's contents plus the line count and
// byte size extraction strategies and the timeout predictor need, in
// one read.
func readFileForExtraction(path string) (text string, lineCount int, size int64, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", 0, 0, err
	}
	size = int64(len(raw))
	lineCount = countLines(raw)
	return string(raw), lineCount, size, nil
}

func countLines(raw []byte) int {
	if len(raw) == 0 {
		return 0
	}
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	count := 0
	for scanner.Scan() {
		count++
	}
	return count
}
