package services

import (
	"context"
	"time"

	"github.com/misteraverin/notification-service/internal/model"
	"github.com/misteraverin/notification-service/internal/queue"
)

type MailoutRepository interface {
	Create(ctx context.Context, m *model.Mailout) (*model.Mailout, error)
	Get(ctx context.Context, id int64) (*model.Mailout, error)
	Update(ctx context.Context, m *model.Mailout) (*model.Mailout, error)
	Delete(ctx context.Context, id int64) error
}

type MessageRepository interface {
	GeneralStats(ctx context.Context) ([]*model.StatusCount, error)
	MailoutStats(ctx context.Context, mailoutID int64, status *model.MessageStatus) ([]*model.StatusCount, error)
	SoftDelete(ctx context.Context, id int64) error
}

type ReferenceRepository interface {
	GetTag(ctx context.Context, id int64) (*model.Tag, error)
	GetPhoneCode(ctx context.Context, id int64) (*model.PhoneCode, error)
}

type CommandPublisher interface {
	PublishRun(cmd queue.RunCommand) error
}

type MailoutService struct {
	mailouts MailoutRepository
	messages MessageRepository
	refs     ReferenceRepository
	commands CommandPublisher
	now      func() time.Time
}

func NewMailoutService(mailouts MailoutRepository, messages MessageRepository, refs ReferenceRepository, commands CommandPublisher) *MailoutService {
	return &MailoutService{
		mailouts: mailouts,
		messages: messages,
		refs:     refs,
		commands: commands,
		now:      time.Now,
	}
}

func (s *MailoutService) Create(ctx context.Context, req model.MailoutCreateRequest) (*model.Mailout, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	m, err := s.buildMailout(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.mailouts.Create(ctx, m)
}

func (s *MailoutService) Get(ctx context.Context, id int64) (*model.Mailout, error) {
	return s.mailouts.Get(ctx, id)
}

func (s *MailoutService) Update(ctx context.Context, id int64, req model.MailoutCreateRequest) (*model.Mailout, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	m, err := s.buildMailout(ctx, req)
	if err != nil {
		return nil, err
	}
	m.ID = id
	return s.mailouts.Update(ctx, m)
}

func (s *MailoutService) Delete(ctx context.Context, id int64) error {
	return s.mailouts.Delete(ctx, id)
}

// EnqueueRun publishes an on-demand run command for an existing
// mailout. The dispatcher decides later whether the window still
// permits sending.
func (s *MailoutService) EnqueueRun(ctx context.Context, id int64) error {
	if _, err := s.mailouts.Get(ctx, id); err != nil {
		return err
	}
	return s.commands.PublishRun(queue.RunCommand{
		MailoutID:   id,
		RequestedAt: s.now().UTC(),
	})
}

func (s *MailoutService) GeneralStats(ctx context.Context) ([]*model.StatusCount, error) {
	return s.messages.GeneralStats(ctx)
}

func (s *MailoutService) MailoutStats(ctx context.Context, id int64, status *model.MessageStatus) ([]*model.StatusCount, error) {
	if _, err := s.mailouts.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.messages.MailoutStats(ctx, id, status)
}

func (s *MailoutService) DeleteMessage(ctx context.Context, id int64) error {
	return s.messages.SoftDelete(ctx, id)
}

// buildMailout resolves referenced tag and phone code ids so a broken
// reference fails the request instead of producing dangling join rows.
func (s *MailoutService) buildMailout(ctx context.Context, req model.MailoutCreateRequest) (*model.Mailout, error) {
	m := &model.Mailout{
		TextMessage:        req.TextMessage,
		StartAt:            req.StartAt,
		FinishAt:           req.FinishAt,
		LocalTimeStartHour: req.LocalTimeStartHour,
		LocalTimeEndHour:   req.LocalTimeEndHour,
	}
	for _, id := range req.TagIDs {
		tag, err := s.refs.GetTag(ctx, id)
		if err != nil {
			return nil, err
		}
		m.Tags = append(m.Tags, *tag)
	}
	for _, id := range req.PhoneCodeIDs {
		pc, err := s.refs.GetPhoneCode(ctx, id)
		if err != nil {
			return nil, err
		}
		m.PhoneCodes = append(m.PhoneCodes, *pc)
	}
	return m, nil
}
