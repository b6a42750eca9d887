package biz

import (
	"github.com/devricklin/feishu-digest-bot/internal/biz/domain"
	"github.com/devricklin/feishu-digest-bot/internal/biz/repo"
	"github.com/devricklin/feishu-digest-bot/internal/biz/usecase"
)

// Usecases contains all usecases
type Usecases struct {
	Channel *usecase.ChannelUsecase
	Capture *usecase.CaptureUsecase
	Digest  *usecase.DigestUsecase
}

// Repos contains the repositories the usecases depend on
type Repos struct {
	Channel  repo.ChannelRepo
	Run      repo.RunRepo
	Snapshot repo.SnapshotRepo
	Sink     repo.DeliverySink
}

// NewUsecases wires the usecases around one shared message store
func NewUsecases(store *domain.MessageStore, repos Repos, digestCfg usecase.DigestConfig, debug bool) *Usecases {
	channelUC := usecase.NewChannelUsecase(repos.Channel)
	return &Usecases{
		Channel: channelUC,
		Capture: usecase.NewCaptureUsecase(store, channelUC, debug),
		Digest:  usecase.NewDigestUsecase(store, repos.Sink, repos.Snapshot, repos.Run, digestCfg),
	}
}
