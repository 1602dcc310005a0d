package earthengine

import "time"

const TimeStartProperty = "system:time_start"

func LoadTable(tableID string) *ValueNode {
	return Invoke("Collection.loadTable", map[string]*ValueNode{
		"tableId": Constant(tableID),
	})
}

func LoadImageCollection(id string) *ValueNode {
	return Invoke("ImageCollection.load", map[string]*ValueNode{
		"id": Constant(id),
	})
}

func Filter(collection, filter *ValueNode) *ValueNode {
	return Invoke("Collection.filter", map[string]*ValueNode{
		"collection": collection,
		"filter":     filter,
	})
}

func FilterEquals(field string, value any) *ValueNode {
	return Invoke("Filter.equals", map[string]*ValueNode{
		"leftField":  Constant(field),
		"rightValue": Constant(value),
	})
}

// FilterDate keeps elements whose start time lies in [start, end).
func FilterDate(start, end time.Time) *ValueNode {
	return Invoke("Filter.dateRangeContains", map[string]*ValueNode{
		"leftValue":  DateRange(start, end),
		"rightField": Constant(TimeStartProperty),
	})
}

// FilterBounds keeps elements whose footprint intersects geometry.
func FilterBounds(geometry *ValueNode) *ValueNode {
	return Invoke("Filter.intersects", map[string]*ValueNode{
		"leftField":  Constant(".all"),
		"rightValue": geometry,
	})
}

func CollectionGeometry(collection *ValueNode) *ValueNode {
	return Invoke("Collection.geometry", map[string]*ValueNode{
		"collection": collection,
	})
}

func Date(t time.Time) *ValueNode {
	return Invoke("Date", map[string]*ValueNode{
		"value": Constant(t.UnixMilli()),
	})
}

func DateRange(start, end time.Time) *ValueNode {
	return Invoke("DateRange", map[string]*ValueNode{
		"start": Date(start),
		"end":   Date(end),
	})
}

func ReducerSum() *ValueNode {
	return Invoke("Reducer.sum", nil)
}

func ReducerMean() *ValueNode {
	return Invoke("Reducer.mean", nil)
}

func Reduce(collection, reducer *ValueNode) *ValueNode {
	return Invoke("ImageCollection.reduce", map[string]*ValueNode{
		"collection": collection,
		"reducer":    reducer,
	})
}

func FromImages(images ...*ValueNode) *ValueNode {
	return Invoke("ImageCollection.fromImages", map[string]*ValueNode{
		"images": Array(images...),
	})
}

func Select(image *ValueNode, bands ...string) *ValueNode {
	selectors := make([]*ValueNode, 0, len(bands))
	for _, b := range bands {
		selectors = append(selectors, Constant(b))
	}
	return Invoke("Image.select", map[string]*ValueNode{
		"input":         image,
		"bandSelectors": Array(selectors...),
	})
}

func Rename(image *ValueNode, names ...string) *ValueNode {
	nodes := make([]*ValueNode, 0, len(names))
	for _, n := range names {
		nodes = append(nodes, Constant(n))
	}
	return Invoke("Image.rename", map[string]*ValueNode{
		"input": image,
		"names": Array(nodes...),
	})
}

func Clip(image, geometry *ValueNode) *ValueNode {
	return Invoke("Image.clip", map[string]*ValueNode{
		"input":    image,
		"geometry": geometry,
	})
}

// Unmask replaces masked pixels with value.
func Unmask(image *ValueNode, value float64) *ValueNode {
	return Invoke("Image.unmask", map[string]*ValueNode{
		"input": image,
		"value": Constant(value),
	})
}

func ReduceRegion(image, reducer, geometry *ValueNode, scale int, maxPixels int64) *ValueNode {
	args := map[string]*ValueNode{
		"image":    image,
		"reducer":  reducer,
		"geometry": geometry,
		"scale":    Constant(scale),
	}
	if maxPixels > 0 {
		args["maxPixels"] = Integer(maxPixels)
	}
	return Invoke("Image.reduceRegion", args)
}

func Set(object *ValueNode, key string, value *ValueNode) *ValueNode {
	return Invoke("Element.set", map[string]*ValueNode{
		"object": object,
		"key":    Constant(key),
		"value":  value,
	})
}
