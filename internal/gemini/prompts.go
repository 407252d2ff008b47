package gemini

// ReplyPromptTemplate frames one chat turn for the model. The format
// string expects 2 parameters: the assembled conversation context and the
// new user message. The context block already carries the private/group
// framing, so the model never needs to know which scope it serves.
const ReplyPromptTemplate = `%s

The user's new message:
%s

Reply to the user's new message. Respond with the reply text only, no labels or prefixes.`

// DefaultSystemInstruction is the baseline persona used when the
// deployment does not configure its own.
const DefaultSystemInstruction = `You are a helpful assistant in a multi-platform chat service. Keep replies concise and conversational. Use the provided conversation context to stay consistent with what was said before, and never invent earlier messages that are not in the context.`
