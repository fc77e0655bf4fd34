package enhancer

const systemPrompt = "You are a search query enhancement expert for a catalog of events and fashion products. " +
	"You always answer with a single JSON object."

// userPrompt takes the raw query as its only argument.
const userPrompt = `Interpret the user's search query and produce a search plan.

User Query: %s

Return a JSON object with exactly these fields:
- "event_enhanced_query": the query rewritten for semantic search over events, descriptive, with synonyms
- "product_enhanced_query": the query rewritten for semantic search over products, descriptive, with synonyms
- "search_type": "event", "product" or "both"
- "audience": "male", "female", "unisex" or null
- "time_filter": "past", "future", "today", "this_week", "this_month", "next_week", "next_month" or null
- "is_weekend": true or false
- "other_keyword_filters": list of keywords

Guidelines:
- Clothing and fashion items mean "product"; activities, entertainment and gatherings mean "event"
- Use "both" only when the query is unclear or clearly asks for both
- Asking for an outfit for an event is "product", not "both"
- Set audience only when the query states it
- Set time_filter and is_weekend only for events, and only when clearly indicated
- Time words (today, next week, weekend) map to time_filter or is_weekend, never to keywords
- Never use "event", "events", "product" or "products" as keywords
- Leave keywords empty for generic requests such as "events this month"
- Otherwise give several keywords including synonyms and related words that would appear in item descriptions

Examples:
- "summer dress for women" -> search_type "product", audience "female", other_keyword_filters ["summer"]
- "i love rap music suggest me some events" -> search_type "event", other_keyword_filters ["rap", "music", "concerts", "hip hop"]
- "upcoming concerts next month" -> search_type "event", time_filter "next_month", other_keyword_filters ["concerts"]
- "events happening today" -> search_type "event", time_filter "today", other_keyword_filters []

Items are indexed with descriptions like:
Product: This is a product named Tshirt. It belongs to the T shirt category and is manufactured by the brand FLY. The product type is Unisex and comes in Black color. It is made from Cotton material and features a Casual style, ideal for the Summer season.
Event: This is an event called Live Music Event, a night of music, creativity and vibes. It takes place on a Friday during Working Days in Manchester, United Kingdom. This event falls under the Concerts category and is tagged with Concerts, Live Music.`
