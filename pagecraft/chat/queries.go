package chat

const (
	queryInsertMessage = `
		INSERT INTO chat_messages (id, frame_id, created_by, role, content)
		VALUES ($1, $2, $3, $4, $5)
	`

	queryDeleteForFrame = `
		DELETE FROM chat_messages
		WHERE frame_id = $1 AND created_by = $2
	`

	queryListForFrame = `
		SELECT id, frame_id, created_by, role, content, created_at
		FROM chat_messages
		WHERE frame_id = $1 AND created_by = $2
		ORDER BY created_at ASC
	`
)
