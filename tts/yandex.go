package tts

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/metadata"

	ttspb "github.com/yandex-cloud/go-genproto/yandex/cloud/ai/tts/v3"
)

const YandexEndpoint = "tts.api.cloud.yandex.net:443"

// YandexConfig authenticates with either an API key or an IAM token. The API
// key wins when both are set.
type YandexConfig struct {
	Endpoint string
	ApiKey   string
	IamToken string
	FolderID string
}

// Yandex streams speech from SpeechKit v3 as a WAV container
type Yandex struct {
	client   ttspb.SynthesizerClient
	conn     *grpc.ClientConn
	auth     string
	folderID string
}

var _ Synthesizer = (*Yandex)(nil)

func DefaultOptions() Options {
	return Options{
		Voice:     "marina",
		Model:     "general",
		Speed:     1.0,
		Normalize: true,
	}
}

func NewYandex(config YandexConfig) (*Yandex, error) {
	if config.FolderID == "" {
		return nil, errors.New("folder ID is required")
	}

	endpoint := config.Endpoint
	if endpoint == "" {
		endpoint = YandexEndpoint
	}

	auth := "Bearer " + config.IamToken
	if config.ApiKey != "" {
		auth = "Api-Key " + config.ApiKey
	}

	conn, err := grpc.NewClient(endpoint, grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{})))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to TTS service: %w", err)
	}

	return &Yandex{
		client:   ttspb.NewSynthesizerClient(conn),
		conn:     conn,
		auth:     auth,
		folderID: config.FolderID,
	}, nil
}

func (y *Yandex) Synthesize(ctx context.Context, text string, opts Options, chunks chan<- []byte) error {
	defer close(chunks)

	ctx = metadata.AppendToOutgoingContext(ctx,
		"authorization", y.auth,
		"x-folder-id", y.folderID,
	)

	stream, err := y.client.UtteranceSynthesis(ctx, utteranceRequest(text, opts))
	if err != nil {
		return fmt.Errorf("failed to start synthesis: %w", err)
	}

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to receive audio chunk: %w", err)
		}

		chunk := resp.GetAudioChunk()
		if chunk == nil {
			continue
		}
		select {
		case chunks <- chunk.GetData():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// utteranceRequest always asks for WAV so the bytes decode as a WAV source
func utteranceRequest(text string, opts Options) *ttspb.UtteranceSynthesisRequest {
	req := &ttspb.UtteranceSynthesisRequest{}
	req.SetText(text)
	if opts.Model != "" {
		req.SetModel(opts.Model)
	}

	var hints []*ttspb.Hints
	if opts.Voice != "" {
		h := &ttspb.Hints{}
		h.SetVoice(opts.Voice)
		hints = append(hints, h)
	}
	if opts.Speed > 0 {
		h := &ttspb.Hints{}
		h.SetSpeed(opts.Speed)
		hints = append(hints, h)
	}
	if opts.Volume != 0 {
		h := &ttspb.Hints{}
		h.SetVolume(opts.Volume)
		hints = append(hints, h)
	}
	req.SetHints(hints)

	container := &ttspb.ContainerAudio{}
	container.SetContainerAudioType(ttspb.ContainerAudio_WAV)
	spec := &ttspb.AudioFormatOptions{}
	spec.SetContainerAudio(container)
	req.SetOutputAudioSpec(spec)

	if opts.Normalize {
		req.SetLoudnessNormalizationType(ttspb.UtteranceSynthesisRequest_LUFS)
	}
	return req
}

func (y *Yandex) Close() error {
	return y.conn.Close()
}
