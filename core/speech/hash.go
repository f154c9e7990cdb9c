package speech

import (
	"crypto/sha256"
	"encoding/hex"
)

// PipelineVersion is mixed into every content hash. Bump it when the synthesis
// settings change so old artifacts are not reused.
const PipelineVersion = "azure-batch-v1"

const outputPrefix = "tts-output/"

// Hash returns the content hash identifying a synthesis of text with voice.
// Fields are NUL separated so ("ab","c") and ("a","bc") never collide.
func Hash(text, voice, version string) string {
	h := sha256.New()
	h.Write([]byte(text))
	h.Write([]byte{0})
	h.Write([]byte(voice))
	h.Write([]byte{0})
	h.Write([]byte(version))
	return hex.EncodeToString(h.Sum(nil))
}

// AudioKey 音频对象的存储路径
func AudioKey(hash string) string {
	return outputPrefix + hash + ".mp3"
}

// SentencesKey 句子时间轴的存储路径
func SentencesKey(hash string) string {
	return outputPrefix + hash + ".sentences.json"
}

// ArchiveKey 原始结果压缩包的存储路径（仅用于排查问题）
func ArchiveKey(hash string) string {
	return outputPrefix + hash + ".zip"
}

// OutputPrefix returns the key prefix shared by all synthesis artifacts.
func OutputPrefix() string {
	return outputPrefix
}
