// 文件路径: internal/service/errors.go
// 模块说明: 这是 internal 模块里的 errors 逻辑，下面的注释会用非常通俗的中文帮你理解每一步。
package service

import (
	"errors"

	"github.com/creamcroissant/inboundpanel/internal/inbound"
)

var (
	// ErrNotFound indicates requested resource does not exist.
	ErrNotFound = errors.New("service: not found / 未找到资源")
	// ErrInvalidInput indicates the payload failed validation.
	ErrInvalidInput = errors.New("service: invalid input / 输入无效")
	// ErrPortConflict indicates the requested port is used by another inbound.
	ErrPortConflict = errors.New("service: port already in use / 端口已被占用")
	// ErrTagConflict indicates the requested tag is used by another inbound.
	ErrTagConflict = errors.New("service: tag already in use / 标签已被占用")
	// ErrUnknownPack indicates the preset pack name is not in the catalog.
	ErrUnknownPack = errors.New("service: unknown pack / 预设包不存在")
	// ErrServerAddressRequired indicates a pack request without server address.
	ErrServerAddressRequired = inbound.ErrServerAddressRequired
)
