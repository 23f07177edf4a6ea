package model

const (
	ConversationsTable = "chat_conversations"
	MessagesTable      = "chat_messages"
	ProfilesTable      = "profiles"
	InquiriesTable     = "inquiries"
	OrdersTable        = "orders"
	UsersTable         = "users"
)

const (
	ConversationsByUserIndex  = "byUser"
	MessagesByConversationIdx = "byConversation"
	OrdersByUserIndex         = "byUser"
)

// KeySchema describes a table or index key as attribute names; every key
// attribute in this schema is a string.
type KeySchema struct {
	Hash  string
	Range string
}

type IndexDefinition struct {
	Name string
	Key  KeySchema
}

type TableDefinition struct {
	Name    string
	Key     KeySchema
	Indexes []IndexDefinition
}

// Tables lists every table the portal owns, used for provisioning.
func Tables() []TableDefinition {
	return []TableDefinition{
		{
			Name: ConversationsTable,
			Key:  KeySchema{Hash: "id"},
			Indexes: []IndexDefinition{
				{Name: ConversationsByUserIndex, Key: KeySchema{Hash: "user_id", Range: "created_at"}},
			},
		},
		{
			Name: MessagesTable,
			Key:  KeySchema{Hash: "id"},
			Indexes: []IndexDefinition{
				{Name: MessagesByConversationIdx, Key: KeySchema{Hash: "conversation_id", Range: "created_at"}},
			},
		},
		{Name: ProfilesTable, Key: KeySchema{Hash: "user_id"}},
		{Name: InquiriesTable, Key: KeySchema{Hash: "id"}},
		{
			Name: OrdersTable,
			Key:  KeySchema{Hash: "id"},
			Indexes: []IndexDefinition{
				{Name: OrdersByUserIndex, Key: KeySchema{Hash: "user_id", Range: "created_at"}},
			},
		},
		{Name: UsersTable, Key: KeySchema{Hash: "email"}},
	}
}
