package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"taskmate/internal/model"
	"taskmate/internal/service/llm"
	"taskmate/pkg/logger"
	"taskmate/pkg/metrics"
	"taskmate/pkg/otel"
	"taskmate/pkg/trace"
)

var (
	// ErrEmptyTurn 既没有文字也没有语音
	ErrEmptyTurn = errors.New("message or audio is required")
	// ErrRateLimited 超过每分钟对话次数
	ErrRateLimited = errors.New("too many chat requests")
)

// VoicePlaceholder 纯语音回合在历史中记录的内容
const VoicePlaceholder = "[voice message]"

const rateScope = "chat"

// Session 已认证的调用方，由 HTTP 层显式传入
type Session struct {
	UserID  int
	TraceID string
}

// Turn 一次用户输入；Audio 为 data:audio/<fmt>;base64,<payload>
type Turn struct {
	Message string
	Audio   string
}

// TurnResult 回复原文和已生效的动作
type TurnResult struct {
	Message string   `json:"message"`
	Actions []Record `json:"actions"`
}

// Options 对话服务的可选参数
type Options struct {
	Mode     string
	Locale   string
	Location *time.Location
	Limits   Limits
}

type Service struct {
	model     llm.Model
	store     Store
	assembler *Assembler
	composer  *Composer
	extractor *Extractor
	applier   *Applier
	limiter   RateLimiter
	loc       *time.Location
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(model llm.Model, store Store, publisher EventPublisher, limiter RateLimiter, opts Options, logger *zap.Logger) *Service {
	if opts.Mode == "" {
		opts.Mode = ModeFenced
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Service{
		model:     model,
		store:     store,
		assembler: NewAssembler(store, opts.Limits, logger),
		composer:  NewComposer(opts.Locale, opts.Mode == ModeTools, opts.Location),
		extractor: NewExtractor(opts.Mode, opts.Location, logger),
		applier:   NewApplier(store, publisher, logger),
		limiter:   limiter,
		loc:       opts.Location,
		logger:    logger,
		now:       time.Now,
	}
}

// HandleTurn 处理一次对话：拼装上下文、调用模型、提取并执行动作、记录历史
// 模型失败降级为空回复；只有输入校验、缺少 API key 和限流会返回错误
func (s *Service) HandleTurn(ctx context.Context, sess Session, turn Turn) (*TurnResult, error) {
	if sess.TraceID != "" && trace.FromContext(ctx) == "" {
		ctx = trace.WithContext(ctx, sess.TraceID)
	}
	ctx, span := otel.StartSpan(ctx, "chat.HandleTurn")
	defer span.End()
	log := logger.WithTrace(ctx, s.logger).With(zap.Int("user_id", sess.UserID))

	text := strings.TrimSpace(turn.Message)
	if text == "" && strings.TrimSpace(turn.Audio) == "" {
		metrics.IncrementChatTurn("rejected")
		return nil, ErrEmptyTurn
	}

	var audio *llm.Audio
	if strings.TrimSpace(turn.Audio) != "" {
		a, err := llm.ParseAudioDataURI(turn.Audio)
		if err != nil {
			metrics.IncrementChatTurn("rejected")
			return nil, err
		}
		audio = a
	}

	if !s.model.Configured() {
		log.Error("Language model is not configured")
		metrics.IncrementChatTurn("error")
		return nil, llm.ErrNotConfigured
	}

	if s.limiter != nil && !s.limiter.Allow(ctx, rateScope, sess.UserID) {
		metrics.IncrementChatTurn("rate_limited")
		return nil, ErrRateLimited
	}

	now := s.now().In(s.loc)
	bundle := s.assembler.Assemble(ctx, sess)

	req := llm.Request{
		System:  s.composer.Compose(bundle, now),
		History: toMessages(bundle.History.Items),
		Text:    text,
		Audio:   audio,
	}
	if s.extractor.Mode() == ModeTools {
		req.Tools = ToolSpecs()
	}

	log.Debug("Calling language model",
		zap.String("provider", s.model.Name()),
		zap.Int("history", len(req.History)),
		zap.Bool("audio", audio != nil),
	)

	reply, err := s.model.Complete(ctx, req)
	if err != nil {
		if errors.Is(err, llm.ErrNotConfigured) {
			metrics.IncrementChatTurn("error")
			return nil, err
		}
		// 模型失败不中断对话，按空回复处理
		log.Warn("Language model call failed, using empty reply", zap.Error(err))
		reply = &llm.Reply{}
	}

	intents := s.extractor.Extract(reply)
	records := s.applier.Apply(ctx, sess, intents)
	span.SetAttributes(
		attribute.Int("chat.intents", len(intents)),
		attribute.Int("chat.actions", len(records)),
	)

	s.appendHistory(ctx, log, sess, text, reply.Text)

	outcome := "ok"
	if err != nil {
		outcome = "degraded"
	}
	metrics.IncrementChatTurn(outcome)
	log.Info("Chat turn handled",
		zap.Int("intents", len(intents)),
		zap.Int("actions", len(records)),
		zap.String("outcome", outcome),
	)

	return &TurnResult{Message: reply.Text, Actions: records}, nil
}

// History 按时间正序返回最近 limit 条对话
func (s *Service) History(ctx context.Context, sess Session, limit int) ([]model.ChatMessage, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.store.History.Recent(ctx, sess.UserID, limit)
}

func (s *Service) appendHistory(ctx context.Context, log *zap.Logger, sess Session, text, reply string) {
	userContent := text
	if userContent == "" {
		userContent = VoicePlaceholder
	}
	at := s.now()
	err := s.store.History.Append(ctx,
		model.ChatMessage{UserID: sess.UserID, Role: model.ChatRoleUser, Content: userContent, CreatedAt: at},
		model.ChatMessage{UserID: sess.UserID, Role: model.ChatRoleAssistant, Content: reply, CreatedAt: at},
	)
	if err != nil {
		log.Error("Failed to append chat history", zap.Error(err))
	}
}

func toMessages(history []model.ChatMessage) []llm.Message {
	msgs := make([]llm.Message, 0, len(history))
	for _, m := range history {
		role := llm.RoleUser
		if m.Role == model.ChatRoleAssistant {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: m.Content})
	}
	return msgs
}
