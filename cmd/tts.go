package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"homereader/core/hoarder"
	"homereader/core/htmltext"
	"homereader/core/speech"
	"homereader/storage"

	"github.com/spf13/cobra"
)

var (
	ttsBookmark string
	ttsVoice    string
	ttsOutDir   string
)

var ttsCmd = &cobra.Command{
	Use:   "tts [file]",
	Short: "离线合成一篇文章",
	Long: `通过 Azure 批量合成接口合成文本或 HTML 文件（或一个 Hoarder 书签），
结果写入对象存储，和网页朗读模式共用同一份缓存。`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		text, err := ttsInput(ctx, args)
		if err != nil {
			return err
		}
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("没有可合成的文本")
		}

		store, err := storage.NewStore(ctx, cfg)
		if err != nil {
			return err
		}
		gateway := speech.NewAzureGateway(speech.GatewayConfig{
			BaseURL:      cfg.SpeechBaseURL(),
			Key:          cfg.SpeechKey,
			PollInterval: cfg.SpeechPollInterval,
			PollTimeout:  cfg.SpeechPollTimeout,
		})
		tracker := speech.NewTracker(gateway, store)

		voice := ttsVoice
		if voice == "" {
			voice = cfg.SpeechVoice
		}
		state := tracker.GetOrStart(text, voice)
		fmt.Printf("hash: %s\n", state.Hash)

		select {
		case <-state.Done():
		case <-ctx.Done():
			return ctx.Err()
		}

		snap := state.Snapshot()
		if snap.Status == speech.StatusError {
			return fmt.Errorf("合成失败: %s", snap.Error)
		}
		fmt.Printf("完成，用时 %s\n", snap.Elapsed(time.Now()).Round(time.Second))

		url, err := store.PresignedURL(ctx, snap.Result.AudioKey, cfg.SpeechURLTTL)
		if err != nil {
			return err
		}
		fmt.Printf("audio: %s\n", url)

		if ttsOutDir == "" {
			return nil
		}
		return ttsDownload(ctx, store, snap)
	},
}

func ttsInput(ctx context.Context, args []string) (string, error) {
	if ttsBookmark != "" {
		client := hoarder.NewClient(cfg.HoarderURL, cfg.HoarderAPIKey)
		bookmark, err := client.GetBookmark(ctx, ttsBookmark)
		if err != nil {
			return "", err
		}
		return htmltext.ToText(bookmark.ReadableHTML())
	}
	if len(args) == 0 {
		return "", fmt.Errorf("需要指定文件或 --bookmark")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", err
	}
	switch strings.ToLower(filepath.Ext(args[0])) {
	case ".html", ".htm":
		return htmltext.ToText(string(data))
	default:
		return string(data), nil
	}
}

func ttsDownload(ctx context.Context, store *storage.Store, snap speech.Snapshot) error {
	if err := os.MkdirAll(ttsOutDir, 0o755); err != nil {
		return err
	}
	for _, key := range []string{snap.Result.AudioKey, snap.Result.SentencesKey} {
		data, err := store.Get(ctx, key)
		if err != nil {
			return err
		}
		dst := filepath.Join(ttsOutDir, filepath.Base(key))
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return err
		}
		fmt.Printf("已保存 %s (%s)\n", dst, storage.FormatSize(int64(len(data))))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(ttsCmd)
	ttsCmd.Flags().StringVarP(&ttsBookmark, "bookmark", "b", "", "合成指定 id 的 Hoarder 书签")
	ttsCmd.Flags().StringVar(&ttsVoice, "voice", "", "语音名称，默认使用 TTS_VOICE")
	ttsCmd.Flags().StringVarP(&ttsOutDir, "out", "o", "", "同时把音频和句子文件下载到该目录")
}
