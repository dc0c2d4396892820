// internal/fault/translate.go
package fault

import (
	"errors"
	"fmt"
	"strings"
)

// Catalog holds the user-facing texts for one language.
// Fields ending in "f" are fmt formats taking the error detail
// (or start and count for RangeGenericf).
type Catalog struct {
	ConnRefused        string
	ConnTimeout        string
	ConnBadAddress     string
	ConnFailedf        string
	NotConnected       string
	RangeZeroCount     string
	RangeTooLarge      string
	RangeOverflow      string
	RangeGenericf      string
	Timeout            string
	DeviceNoSuchAddr   string
	DeviceNoSuchFunc   string
	DeviceIllegalAddr  string
	DeviceIllegalValue string
	DeviceFailedf      string
	IOf                string
	Protocolf          string
	Configf            string
	Internalf          string
}

var English = &Catalog{
	ConnRefused:        "Connection refused: check the device IP address and port, and that the device is online",
	ConnTimeout:        "Connection timed out: check the network and the device state",
	ConnBadAddress:     "Invalid IP address format: check the address you entered",
	ConnFailedf:        "Connection failed: %s",
	NotConnected:       "Device not connected: connect to the device first",
	RangeZeroCount:     "Register count must not be 0",
	RangeTooLarge:      "A single read cannot exceed 125 registers",
	RangeOverflow:      "Address range overflows: adjust the start address or the register count",
	RangeGenericf:      "Invalid address range (start: %d, count: %d)",
	Timeout:            "Operation timed out: the device may be busy or the network slow, try again later",
	DeviceNoSuchAddr:   "The register address does not exist on the device",
	DeviceNoSuchFunc:   "The device does not support this function",
	DeviceIllegalAddr:  "Illegal data address: check the register address",
	DeviceIllegalValue: "Illegal data value: the device cannot process the requested data",
	DeviceFailedf:      "Device error: %s",
	IOf:                "Network error: %s",
	Protocolf:          "Protocol error: %s",
	Configf:            "Configuration error: %s",
	Internalf:          "Internal error: %s",
}

var Chinese = &Catalog{
	ConnRefused:        "连接被拒绝，请检查设备IP地址和端口是否正确，设备是否在线",
	ConnTimeout:        "连接超时，请检查网络连接和设备状态",
	ConnBadAddress:     "IP地址格式错误，请检查输入的地址格式",
	ConnFailedf:        "连接失败: %s",
	NotConnected:       "设备未连接，请先点击'连接'按钮建立连接",
	RangeZeroCount:     "寄存器数量不能为0",
	RangeTooLarge:      "单次读取的寄存器数量不能超过125个",
	RangeOverflow:      "地址范围溢出，请调整起始地址或寄存器数量",
	RangeGenericf:      "地址范围无效 (起始: %d, 数量: %d)",
	Timeout:            "操作超时，设备可能繁忙或网络延迟过高，请稍后重试",
	DeviceNoSuchAddr:   "设备中不存在指定的寄存器地址",
	DeviceNoSuchFunc:   "设备不支持此功能",
	DeviceIllegalAddr:  "非法数据地址 - 请检查寄存器地址是否正确",
	DeviceIllegalValue: "非法数据值 - 设备无法处理请求的数据",
	DeviceFailedf:      "设备错误: %s",
	IOf:                "网络错误: %s",
	Protocolf:          "协议错误: %s",
	Configf:            "配置错误: %s",
	Internalf:          "内部错误: %s",
}

var locales = map[string]*Catalog{
	"":      English,
	"en":    English,
	"en-us": English,
	"en_us": English,
	"zh":    Chinese,
	"zh-cn": Chinese,
	"zh_cn": Chinese,
	"cn":    Chinese,
}

// KnownLocale reports whether CatalogFor recognises the tag.
func KnownLocale(locale string) bool {
	_, ok := locales[strings.ToLower(locale)]
	return ok
}

// CatalogFor returns the catalog for a locale tag, English when unknown.
func CatalogFor(locale string) *Catalog {
	if c, ok := locales[strings.ToLower(locale)]; ok {
		return c
	}
	return English
}

// Substring rules. A rule matches when every group has at least one
// alternative contained in the detail text.
type rule struct {
	groups [][]string
	pick   func(c *Catalog) string
}

var connRules = []rule{
	{[][]string{{"refused"}}, func(c *Catalog) string { return c.ConnRefused }},
	{[][]string{{"timeout", "Timeout"}}, func(c *Catalog) string { return c.ConnTimeout }},
	{[][]string{{"Invalid address"}}, func(c *Catalog) string { return c.ConnBadAddress }},
}

var deviceRules = []rule{
	{[][]string{{"Illegal data address", "illegal data address"}}, func(c *Catalog) string { return c.DeviceNoSuchAddr }},
	{[][]string{{"Illegal function", "illegal function"}}, func(c *Catalog) string { return c.DeviceNoSuchFunc }},
	{[][]string{{"exception"}, {"0x02"}}, func(c *Catalog) string { return c.DeviceIllegalAddr }},
	{[][]string{{"exception"}, {"0x03"}}, func(c *Catalog) string { return c.DeviceIllegalValue }},
}

func (r rule) match(s string) bool {
	for _, alts := range r.groups {
		hit := false
		for _, a := range alts {
			if strings.Contains(s, a) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

func firstMatch(rules []rule, s string, c *Catalog) (string, bool) {
	for _, r := range rules {
		if r.match(s) {
			return r.pick(c), true
		}
	}
	return "", false
}

// UserMessage translates err with the English catalog.
func UserMessage(err error) string {
	return Translate(err, English)
}

// Translate maps err to a user-facing explanation. It is pure.
// Errors outside the taxonomy are returned as their Error() text.
func Translate(err error, c *Catalog) string {
	if err == nil {
		return ""
	}
	if c == nil {
		c = English
	}
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}

	switch e.Kind {
	case KindConnectionFailed:
		if msg, ok := firstMatch(connRules, e.Detail, c); ok {
			return msg
		}
		return fmt.Sprintf(c.ConnFailedf, e.Detail)

	case KindNotConnected:
		return c.NotConnected

	case KindInvalidAddressRange:
		switch {
		case e.Count == 0:
			return c.RangeZeroCount
		case e.Count > 125:
			return c.RangeTooLarge
		case saturatingAdd(e.Start, e.Count) <= e.Start:
			return c.RangeOverflow
		default:
			return fmt.Sprintf(c.RangeGenericf, e.Start, e.Count)
		}

	case KindTimeout:
		return c.Timeout

	case KindDeviceError:
		switch e.Exception {
		case 0x01:
			return c.DeviceNoSuchFunc
		case 0x02:
			return c.DeviceNoSuchAddr
		case 0x03:
			return c.DeviceIllegalValue
		}
		if msg, ok := firstMatch(deviceRules, e.Detail, c); ok {
			return msg
		}
		return fmt.Sprintf(c.DeviceFailedf, e.Detail)

	case KindIO:
		return fmt.Sprintf(c.IOf, e.Detail)
	case KindProtocol:
		return fmt.Sprintf(c.Protocolf, e.Detail)
	case KindConfig:
		return fmt.Sprintf(c.Configf, e.Detail)
	case KindInternal:
		return fmt.Sprintf(c.Internalf, e.Detail)
	}
	return err.Error()
}

func saturatingAdd(a, b uint16) uint16 {
	s := uint32(a) + uint32(b)
	if s > 0xFFFF {
		return 0xFFFF
	}
	return uint16(s)
}
