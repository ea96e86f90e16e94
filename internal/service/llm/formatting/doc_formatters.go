package formatting

// SearchResultsFormatter trims search_documents results down to what the
// model needs to pick a document: name, path and the highlighted preview.
// IDs, scores and timestamps are dropped to save tokens.
type SearchResultsFormatter struct{}

// Format filters search results to essential fields plus pagination info.
func (f *SearchResultsFormatter) Format(result interface{}) interface{} {
	resultMap, ok := result.(map[string]interface{})
	if !ok {
		return result
	}

	resultsArray, ok := resultMap["results"].([]interface{})
	if !ok {
		return result
	}

	filtered := make([]interface{}, len(resultsArray))
	for i, item := range resultsArray {
		itemMap, ok := item.(map[string]interface{})
		if !ok {
			filtered[i] = item
			continue
		}
		filtered[i] = map[string]interface{}{
			"name":    itemMap["name"],
			"path":    itemMap["path"],
			"preview": itemMap["preview"],
		}
	}

	return map[string]interface{}{
		"results":  filtered,
		"count":    resultMap["count"],
		"has_more": resultMap["has_more"],
	}
}

// DocumentViewFormatter strips ids and timestamps from view_document
// results. Applies to both single documents and folder listings.
type DocumentViewFormatter struct{}

var viewDroppedFields = map[string]bool{
	"id":         true,
	"updated_at": true,
	"word_count": true,
}

// Format removes metadata fields the model has no use for.
func (f *DocumentViewFormatter) Format(result interface{}) interface{} {
	resultMap, ok := result.(map[string]interface{})
	if !ok {
		return result
	}

	filtered := make(map[string]interface{})
	for key, value := range resultMap {
		if viewDroppedFields[key] {
			continue
		}
		if key == "documents" || key == "folders" {
			if items, ok := value.([]interface{}); ok {
				filtered[key] = filterItems(items)
				continue
			}
		}
		filtered[key] = value
	}

	return filtered
}

// filterItems strips dropped fields from each entry of a listing.
func filterItems(items []interface{}) []interface{} {
	filtered := make([]interface{}, len(items))
	for i, item := range items {
		itemMap, ok := item.(map[string]interface{})
		if !ok {
			filtered[i] = item
			continue
		}
		entry := make(map[string]interface{})
		for k, v := range itemMap {
			if !viewDroppedFields[k] {
				entry[k] = v
			}
		}
		filtered[i] = entry
	}
	return filtered
}

// TreeFormatter converts nested view_tree results into indented text like
// the Unix tree command. A text rendering reads better to the model than
// nested JSON and costs fewer tokens.
type TreeFormatter struct {
	metadataRenderers []MetadataRenderer
	treeRenderer      *TreeRenderer
}

// NewTreeFormatter creates a TreeFormatter with the default metadata
// renderers. Additional renderers slot in by appending to the slice.
func NewTreeFormatter() *TreeFormatter {
	return &TreeFormatter{
		metadataRenderers: []MetadataRenderer{
			&WordCountRenderer{},
		},
		treeRenderer: NewTreeRenderer(),
	}
}

// Format renders the tree structure as text. Returns a string, not a map.
func (f *TreeFormatter) Format(result interface{}) interface{} {
	resultMap, ok := result.(map[string]interface{})
	if !ok {
		return result
	}

	path, _ := resultMap["path"].(string)
	if path == "" {
		path = "/"
	}

	rootMetadata := ""
	if path == "/" {
		rootMetadata = "(root)"
	}
	nodes := []TreeNode{{
		Name:     path,
		IsFolder: true,
		Depth:    0,
		Metadata: rootMetadata,
	}}

	f.walkTree(resultMap, 1, &nodes)

	return f.treeRenderer.Render(nodes)
}

// walkTree flattens the nested structure depth-first: folders (recursing
// into each), then documents.
func (f *TreeFormatter) walkTree(node map[string]interface{}, depth int, nodes *[]TreeNode) {
	folders, _ := node["folders"].([]interface{})
	documents, _ := node["documents"].([]interface{})

	totalChildren := len(folders) + len(documents)
	if totalChildren == 0 {
		return
	}

	currentIndex := 0

	for _, folder := range folders {
		folderMap, ok := folder.(map[string]interface{})
		if !ok {
			continue
		}

		name, _ := folderMap["name"].(string)
		*nodes = append(*nodes, TreeNode{
			Name:     name,
			IsFolder: true,
			Depth:    depth,
			IsLast:   currentIndex == totalChildren-1,
		})
		currentIndex++

		f.walkTree(folderMap, depth+1, nodes)
	}

	for _, doc := range documents {
		docMap, ok := doc.(map[string]interface{})
		if !ok {
			continue
		}

		name, _ := docMap["name"].(string)
		*nodes = append(*nodes, TreeNode{
			Name:     name,
			IsFolder: false,
			Depth:    depth,
			IsLast:   currentIndex == totalChildren-1,
			Metadata: CombineMetadata(f.metadataRenderers, docMap),
		})
		currentIndex++
	}
}
