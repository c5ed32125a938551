package aurora

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// Descriptors is the uniform-buffer binding of the scene pipeline: one set
// per chain image, each pointing at that image's uniform buffer.
type Descriptors struct {
	device vk.Device
	layout vk.DescriptorSetLayout
	pool   vk.DescriptorPool
	sets   []vk.DescriptorSet
}

func uniformLayoutBindings() []vk.DescriptorSetLayoutBinding {
	return []vk.DescriptorSetLayoutBinding{{
		Binding:         0,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit),
	}}
}

// newDescriptorLayout creates only the set layout. It outlives chain rebuilds.
func newDescriptorLayout(device vk.Device) (*Descriptors, error) {
	bindings := uniformLayoutBindings()
	d := &Descriptors{device: device}
	ret := vk.CreateDescriptorSetLayout(device, &vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}, nil, &d.layout)
	if isError(ret) {
		return nil, errors.Wrap(newError(ret), "create descriptor set layout")
	}
	return d, nil
}

func (d *Descriptors) Layout() vk.DescriptorSetLayout {
	return d.layout
}

func (d *Descriptors) Set(image uint32) vk.DescriptorSet {
	return d.sets[image]
}

// allocate builds a pool sized to the uniform buffer count and writes one
// set per buffer. Any previous pool is released first.
func (d *Descriptors) allocate(uniforms *UniformBuffers) error {
	d.releasePool()
	count := uint32(uniforms.Len())
	if count == 0 {
		return errors.New("no uniform buffers to describe")
	}
	ret := vk.CreateDescriptorPool(d.device, &vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       count,
		PoolSizeCount: 1,
		PPoolSizes: []vk.DescriptorPoolSize{{
			Type:            vk.DescriptorTypeUniformBuffer,
			DescriptorCount: count,
		}},
	}, nil, &d.pool)
	if isError(ret) {
		return errors.Wrap(newError(ret), "create descriptor pool")
	}

	layouts := make([]vk.DescriptorSetLayout, count)
	for i := range layouts {
		layouts[i] = d.layout
	}
	d.sets = make([]vk.DescriptorSet, count)
	ret = vk.AllocateDescriptorSets(d.device, &vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     d.pool,
		DescriptorSetCount: count,
		PSetLayouts:        layouts,
	}, &d.sets[0])
	if isError(ret) {
		d.releasePool()
		return errors.Wrap(newError(ret), "allocate descriptor sets")
	}

	writes := make([]vk.WriteDescriptorSet, count)
	for i := range writes {
		writes[i] = vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          d.sets[i],
			DstBinding:      0,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			PBufferInfo: []vk.DescriptorBufferInfo{{
				Buffer: uniforms.Handle(uint32(i)),
				Range:  uniformSize,
			}},
		}
	}
	vk.UpdateDescriptorSets(d.device, count, writes, 0, nil)
	return nil
}

// releasePool frees the pool and with it every set.
func (d *Descriptors) releasePool() {
	if d.pool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(d.device, d.pool, nil)
		d.pool = vk.NullDescriptorPool
	}
	d.sets = nil
}

func (d *Descriptors) Destroy() {
	d.releasePool()
	if d.layout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(d.device, d.layout, nil)
		d.layout = vk.NullDescriptorSetLayout
	}
}
