package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// TwinModulePrefix 问答模块
	TwinModulePrefix = "twin"

	// EntitySession 会话实体
	EntitySession = "session"

	// KeySessionPrefix 会话问答记录 (LIST)，后接 sessionID
	// 格式: app:twin:session:{sessionID}
	KeySessionPrefix = AppPrefix + ":" + TwinModulePrefix + ":" + EntitySession + ":"
)
