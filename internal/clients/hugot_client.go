package clients

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/options"
)

// EnsureHugotModel downloads a Hugging Face model into modelDir unless it is
// already there, and returns the local model path.
func EnsureHugotModel(modelName, modelDir string) (string, error) {
	if err := os.MkdirAll(modelDir, os.ModePerm); err != nil {
		return "", fmt.Errorf("[HugotClient] failed to create model directory: %w", err)
	}

	localPath := filepath.Join(modelDir, strings.ReplaceAll(modelName, "/", "_"))
	if _, err := os.Stat(localPath); err == nil {
		slog.Info("[HugotClient] Using existing model", slog.String("path", localPath))
		return localPath, nil
	}

	slog.Info("[HugotClient] Model not found, downloading...", slog.String("model", modelName))
	downloadOptions := hugot.NewDownloadOptions()
	downloadOptions.OnnxFilePath = "onnx/model.onnx"

	modelPath, err := hugot.DownloadModel(modelName, modelDir, downloadOptions)
	if err != nil {
		return "", fmt.Errorf("[HugotClient] failed to download %s: %w", modelName, err)
	}
	slog.Info("[HugotClient] Model downloaded successfully", slog.String("path", modelPath))

	return modelPath, nil
}

// NewHugotSession starts an ONNX Runtime session. The caller destroys it.
func NewHugotSession(onnxLibraryPath string) (*hugot.Session, error) {
	var opts []options.WithOption
	if onnxLibraryPath != "" {
		opts = append(opts, options.WithOnnxLibraryPath(onnxLibraryPath))
	}

	session, err := hugot.NewORTSession(opts...)
	if err != nil {
		return nil, fmt.Errorf("[HugotClient] failed to initialize hugot session: %w", err)
	}
	return session, nil
}
