package service

import (
	"errors"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	NotFound            = 404
	InternalServerError = 500
)

var (
	ErrParamInvalid        = errors.New("参数错误")
	ErrUserNotFound        = errors.New("用户不存在")
	ErrContentNotFound     = errors.New("内容不存在")
	ErrUserFollowExist     = errors.New("用户已关注")
	ErrUserFollowNotFound  = errors.New("尚未关注该用户")
	ErrUserFollowSelf      = errors.New("用户不能关注自己")
	ErrMessageSelf         = errors.New("不能给自己发私信")
	ErrMessageNotFound     = errors.New("私信不存在")
	ErrMessageNotRecipient = errors.New("只有接收方可以更新私信状态")
	ErrConversation        = errors.New("会话异常")
	ErrNotifyNotFound      = errors.New("通知不存在")
	ErrTargetUserInvalid   = errors.New("目标用户无效")
	UnauthorizedError      = errors.New("权限不足")
	UnExpectedError        = errors.New("系统异常，请稍后重试")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:        BadRequest,
	ErrUserNotFound:        NotFound,
	ErrContentNotFound:     NotFound,
	ErrUserFollowExist:     BadRequest,
	ErrUserFollowNotFound:  NotFound,
	ErrUserFollowSelf:      BadRequest,
	ErrMessageSelf:         BadRequest,
	ErrMessageNotFound:     NotFound,
	ErrMessageNotRecipient: Unauthorized,
	ErrConversation:        BadRequest,
	ErrNotifyNotFound:      NotFound,
	ErrTargetUserInvalid:   BadRequest,
	UnauthorizedError:      Unauthorized,
	UnExpectedError:        InternalServerError,
}
