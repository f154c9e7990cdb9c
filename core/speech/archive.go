package speech

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/klauspost/compress/zip"
)

const (
	audioSuffix    = ".mp3"
	sentenceSuffix = ".sentence.json"
)

// Sentence is one entry of the sentence manifest. Offsets and durations are in
// milliseconds; field names follow the vendor's boundary file.
type Sentence struct {
	Text        string `json:"Text"`
	AudioOffset int64  `json:"AudioOffset"`
	Duration    int64  `json:"Duration"`
}

// Output is the unpacked result of a batch synthesis job.
type Output struct {
	Audio         []byte
	Sentences     []Sentence
	SentencesJSON []byte
	Archive       []byte
}

// Unpack extracts the audio track and the sentence boundary file from a
// batch synthesis result archive.
func Unpack(archive []byte) (*Output, error) {
	reader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, &DecodeError{Member: "archive", Err: err}
	}

	var audioFile, sentenceFile *zip.File
	for _, f := range reader.File {
		name := strings.ToLower(f.Name)
		switch {
		case strings.HasSuffix(name, sentenceSuffix) && sentenceFile == nil:
			sentenceFile = f
		case strings.HasSuffix(name, audioSuffix) && audioFile == nil:
			audioFile = f
		}
	}
	if audioFile == nil {
		return nil, &DecodeError{Member: "audio (" + audioSuffix + ")"}
	}
	if sentenceFile == nil {
		return nil, &DecodeError{Member: "sentence boundary (" + sentenceSuffix + ")"}
	}

	audio, err := readMember(audioFile)
	if err != nil {
		return nil, err
	}
	raw, err := readMember(sentenceFile)
	if err != nil {
		return nil, err
	}

	var sentences []Sentence
	if err := json.Unmarshal(raw, &sentences); err != nil {
		return nil, &DecodeError{Member: sentenceFile.Name, Err: err}
	}
	if sentences == nil {
		sentences = []Sentence{}
	}

	// 重新编码，只保留播放器需要的字段
	normalized, err := json.Marshal(sentences)
	if err != nil {
		return nil, &DecodeError{Member: sentenceFile.Name, Err: err}
	}

	return &Output{
		Audio:         audio,
		Sentences:     sentences,
		SentencesJSON: normalized,
		Archive:       archive,
	}, nil
}

func readMember(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, &DecodeError{Member: f.Name, Err: err}
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, &DecodeError{Member: f.Name, Err: err}
	}
	return data, nil
}
