package service

import (
	"Ripple/internal/api/dto"
	"Ripple/internal/model"
	"Ripple/internal/pkg/consts"
	"Ripple/internal/pkg/eventbus"
	"Ripple/internal/pkg/mongo"
	"Ripple/internal/pkg/util"
	"Ripple/internal/repository"
	"context"
	"errors"
	log "log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jinzhu/copier"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongoDB "go.mongodb.org/mongo-driver/mongo"
)

// IMService 私信服务接口定义
type IMService interface {
	SendMessage(ctx context.Context, senderID uint64, req *dto.SendMessageReq) (*dto.MessageDTO, error)
	MarkDelivered(ctx context.Context, userID uint64, messageID string) error
	MarkConversationRead(ctx context.Context, userID, otherID uint64) error
	GetChatHistory(ctx context.Context, userID, otherID uint64, cursor string, pageSize int) (*dto.ChatHistoryDTO, error)
	GetConversationList(ctx context.Context, userID uint64, query *dto.PageQuery) ([]*dto.ConversationDTO, error)
}

type imServiceImpl struct {
	messageRepo repository.MessageRepo
	convRepo    repository.ConversationRepo
	userRepo    repository.UserRepo
	tx          mongo.TxRunner
	bus         *eventbus.Bus
}

func NewIMService(message repository.MessageRepo, conv repository.ConversationRepo, user repository.UserRepo, tx mongo.TxRunner, bus *eventbus.Bus) IMService {
	return &imServiceImpl{
		messageRepo: message,
		convRepo:    conv,
		userRepo:    user,
		tx:          tx,
		bus:         bus,
	}
}

// SendMessage 发送私信。会话维护、消息落库、事件入队在同一事务内,
// 提交后事件才会扇出到接收方。
func (s *imServiceImpl) SendMessage(ctx context.Context, senderID uint64, req *dto.SendMessageReq) (*dto.MessageDTO, error) {
	if req.RecipientID == senderID {
		return nil, ErrMessageSelf
	}
	if _, err := s.userRepo.GetByUserID(ctx, req.RecipientID); err != nil {
		if errors.Is(err, mongoDB.ErrNoDocuments) {
			return nil, ErrTargetUserInvalid
		}
		return nil, err
	}

	now := time.Now()
	msg := &model.Message{
		PeerKey:     model.PeerKey(senderID, req.RecipientID),
		SenderID:    senderID,
		RecipientID: req.RecipientID,
		Body:        req.Body,
		State:       consts.MessageStateSent,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.convRepo.UpsertOnMessage(txCtx, msg.PeerKey, []uint64{senderID, req.RecipientID}, req.RecipientID, now); err != nil {
			return err
		}
		if err := s.messageRepo.Save(txCtx, msg); err != nil {
			return err
		}
		s.bus.QueueTransactional(txCtx, eventbus.Event{
			Type:    consts.EventMessageSent,
			Payload: *toMessageDTO(msg),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return toMessageDTO(msg), nil
}

// MarkDelivered 接收方确认单条消息已送达。状态只能前进,
// 已读消息会忽略迟到的送达回执。
func (s *imServiceImpl) MarkDelivered(ctx context.Context, userID uint64, messageID string) error {
	objectID, err := primitive.ObjectIDFromHex(messageID)
	if err != nil {
		return ErrParamInvalid
	}

	msg, err := s.messageRepo.AdvanceState(ctx, objectID, userID, consts.MessageStateDelivered)
	if err == nil {
		s.bus.Publish(ctx, eventbus.Event{
			Type: consts.EventMessageStatus,
			Payload: dto.MessageStatusDTO{
				MessageID:  msg.ID.Hex(),
				PeerKey:    msg.PeerKey,
				State:      msg.State,
				Recipients: []uint64{msg.SenderID},
			},
		})
		return nil
	}
	if !errors.Is(err, mongoDB.ErrNoDocuments) {
		return err
	}

	// 未发生推进:区分消息不存在、非接收方、状态已领先
	existing, getErr := s.messageRepo.GetByID(ctx, objectID)
	if getErr != nil {
		if errors.Is(getErr, mongoDB.ErrNoDocuments) {
			return ErrMessageNotFound
		}
		return getErr
	}
	if existing.RecipientID != userID {
		return ErrMessageNotRecipient
	}
	return nil
}

// MarkConversationRead 接收方把会话内全部消息置为已读并清零未读数,
// 有消息被推进时向对方发送已读回执。
func (s *imServiceImpl) MarkConversationRead(ctx context.Context, userID, otherID uint64) error {
	if userID == otherID {
		return ErrParamInvalid
	}

	peerKey := model.PeerKey(userID, otherID)
	if _, err := s.convRepo.GetByPeerKey(ctx, peerKey); err != nil {
		if errors.Is(err, mongoDB.ErrNoDocuments) {
			return ErrConversation
		}
		return err
	}

	return s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		updated, err := s.messageRepo.MarkConversationRead(txCtx, peerKey, userID)
		if err != nil {
			return err
		}
		if err := s.convRepo.ResetUnread(txCtx, peerKey, userID); err != nil {
			return err
		}
		if updated > 0 {
			s.bus.QueueTransactional(txCtx, eventbus.Event{
				Type: consts.EventMessageStatus,
				Payload: dto.MessageStatusDTO{
					PeerKey:    peerKey,
					State:      consts.MessageStateRead,
					Recipients: []uint64{otherID},
				},
			})
		}
		return nil
	})
}

// GetChatHistory 游标翻页拉取会话历史,最新的在前
func (s *imServiceImpl) GetChatHistory(ctx context.Context, userID, otherID uint64, cursor string, pageSize int) (*dto.ChatHistoryDTO, error) {
	if pageSize <= 0 {
		pageSize = defaultPageLimit
	}
	if pageSize > maxPageLimit {
		pageSize = maxPageLimit
	}

	var before time.Time
	if cursor != "" {
		t, _, err := util.DecodeTimeCursor(cursor)
		if err != nil {
			return nil, ErrParamInvalid
		}
		before = t
	}

	peerKey := model.PeerKey(userID, otherID)
	messages, err := s.messageRepo.GetHistory(ctx, peerKey, before, int64(pageSize))
	if err != nil {
		return nil, err
	}

	res := &dto.ChatHistoryDTO{Messages: make([]*dto.MessageDTO, 0, len(messages))}
	for i := range messages {
		res.Messages = append(res.Messages, toMessageDTO(&messages[i]))
	}
	if len(messages) == pageSize {
		last := messages[len(messages)-1]
		res.NextCursor = util.EncodeTimeCursor(last.CreatedAt, last.ID.Hex())
	}
	return res, nil
}

// GetConversationList 获取会话列表,按最近消息时间降序
func (s *imServiceImpl) GetConversationList(ctx context.Context, userID uint64, query *dto.PageQuery) ([]*dto.ConversationDTO, error) {
	limit, skip, _ := normalizePage(query)

	list, err := s.convRepo.ListByUser(ctx, userID, int64(limit), int64(skip))
	if err != nil {
		return nil, err
	}

	res := make([]*dto.ConversationDTO, 0, len(list))
	for _, conv := range list {
		peerID, err := peerOf(conv.PeerKey, userID)
		if err != nil {
			log.WarnContext(ctx, "broken conversation peer key", "peer_key", conv.PeerKey)
			continue
		}
		res = append(res, &dto.ConversationDTO{
			PeerKey:       conv.PeerKey,
			PeerID:        peerID,
			UnreadCount:   conv.Unread[strconv.FormatUint(userID, 10)],
			LastMessageAt: conv.LastMessageAt.UTC().Format(time.RFC3339),
		})
	}
	return res, nil
}

// peerOf 从会话键解析对手方ID
func peerOf(peerKey string, userID uint64) (uint64, error) {
	parts := strings.Split(peerKey, "_")
	if len(parts) != 2 {
		return 0, ErrConversation
	}

	a := util.StrToUint64(parts[0])
	b := util.StrToUint64(parts[1])
	if a == 0 || b == 0 {
		return 0, ErrConversation
	}
	if a == userID {
		return b, nil
	}
	return a, nil
}

func toMessageDTO(m *model.Message) *dto.MessageDTO {
	d := &dto.MessageDTO{}
	_ = copier.Copy(d, m)
	d.ID = m.ID.Hex()
	d.CreatedAt = m.CreatedAt.UTC().Format(time.RFC3339)
	return d
}
